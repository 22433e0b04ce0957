package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

type Proposal struct {
	Id           uint64 `gorm:"primary_key" json:"id"`
	Proposer     string `gorm:"index" json:"proposer"`
	Kind         string `json:"kind"`
	Description  string `json:"description"`
	Status       string `gorm:"index" json:"status"`
	ForVotes     uint64 `json:"for_votes"`
	AgainstVotes uint64 `json:"against_votes"`
	Deadline     uint64 `json:"deadline"`
	ExecuteTime  uint64 `json:"execute_time"`
	NewHeight    uint64 `json:"new_height"`
	ExecHeight   uint64 `json:"exec_height"`
	Executor     string `json:"executor"`
}

type Vote struct {
	Id       uint64 `gorm:"primary_key" json:"id"`
	Proposal uint64 `gorm:"index" json:"proposal"`
	Voter    string `gorm:"index" json:"voter"`
	Support  bool   `json:"support"`
	Weight   uint64 `json:"weight"`
	Height   uint64 `json:"height"`
}

type RoleChange struct {
	Id      uint64 `gorm:"primary_key" json:"id"`
	Role    string `gorm:"index" json:"role"`
	Account string `gorm:"index" json:"account"`
	Sender  string `json:"sender"`
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
	Height  uint64 `json:"height"`
}

// Transfer covers KHRT transfers, mints and burns.
type Transfer struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Kind   string `json:"kind"`
	From   string `gorm:"column:from_addr;index" json:"from"`
	To     string `gorm:"column:to_addr;index" json:"to"`
	Amount string `json:"amount"`
	Height uint64 `json:"height"`
}

type CollateralMove struct {
	Id         uint64 `gorm:"primary_key" json:"id"`
	User       string `gorm:"index" json:"user"`
	Asset      string `gorm:"index" json:"asset"`
	Deposit    bool   `json:"deposit"`
	Collateral string `json:"collateral"`
	KHRT       string `gorm:"column:khrt" json:"khrt"`
	Height     uint64 `json:"height"`
}
