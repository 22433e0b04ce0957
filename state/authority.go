package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
)

type RoleChange struct {
	ID         uint64         `json:"id"`
	Role       common.Hash    `json:"role"`
	Account    common.Address `json:"account"`
	Grant      bool           `json:"grant"`
	Executed   bool           `json:"executed"`
	ProposedBy common.Address `json:"proposedBy"`
	ProposedAt uint64         `json:"proposedAt"`
}

type authorityData struct {
	Roles             map[common.Hash]map[common.Address]bool `json:"roles"`
	AuthorizedCallers map[common.Address]bool                 `json:"authorizedCallers"`
	Changes           map[uint64]*RoleChange                  `json:"changes"`
	NextChange        uint64                                  `json:"nextChange"`
	Controller        common.Address                          `json:"controller"`
	EmergencyAdmin    common.Address                          `json:"emergencyAdmin"`
	EmergencyMode     bool                                    `json:"emergencyMode"`
	Bootstrap         common.Address                          `json:"bootstrap"`
	SetupDeadline     uint64                                  `json:"setupDeadline"`
	SetupClosed       bool                                    `json:"setupClosed"`
}

// AuthorityRegistry is the single source of truth for role membership and
// the emergency switch. Mutations come from the governance controller, or
// from the bootstrap account while the setup window is open.
type AuthorityRegistry struct {
	env  *env
	data authorityData
}

func NewAuthorityRegistry(e *env, bootstrap, emergencyAdmin common.Address, setupDeadline uint64) *AuthorityRegistry {
	return &AuthorityRegistry{
		env: e,
		data: authorityData{
			Roles:             make(map[common.Hash]map[common.Address]bool),
			AuthorizedCallers: make(map[common.Address]bool),
			Changes:           make(map[uint64]*RoleChange),
			NextChange:        1,
			EmergencyAdmin:    emergencyAdmin,
			Bootstrap:         bootstrap,
			SetupDeadline:     setupDeadline,
		},
	}
}

func (r *AuthorityRegistry) clone(e *env) *AuthorityRegistry {
	n := &AuthorityRegistry{env: e, data: r.data}
	n.data.Roles = make(map[common.Hash]map[common.Address]bool, len(r.data.Roles))
	for role, members := range r.data.Roles {
		n.data.Roles[role] = copyMap(members)
	}
	n.data.AuthorizedCallers = copyMap(r.data.AuthorizedCallers)
	n.data.Changes = make(map[uint64]*RoleChange, len(r.data.Changes))
	for id, c := range r.data.Changes {
		cc := *c
		n.data.Changes[id] = &cc
	}
	return n
}

func (r *AuthorityRegistry) marshal() ([]byte, error) {
	return json.Marshal(&r.data)
}

func (r *AuthorityRegistry) unmarshal(bz []byte) error {
	if err := json.Unmarshal(bz, &r.data); err != nil {
		return err
	}
	if r.data.Roles == nil {
		r.data.Roles = make(map[common.Hash]map[common.Address]bool)
	}
	if r.data.AuthorizedCallers == nil {
		r.data.AuthorizedCallers = make(map[common.Address]bool)
	}
	if r.data.Changes == nil {
		r.data.Changes = make(map[uint64]*RoleChange)
	}
	return nil
}

func (r *AuthorityRegistry) setupOpen() bool {
	return !r.data.SetupClosed && r.env.now < r.data.SetupDeadline
}

func (r *AuthorityRegistry) checkAdmin(caller common.Address) error {
	if r.setupOpen() && caller == r.data.Bootstrap {
		return nil
	}
	if r.data.Controller == (common.Address{}) {
		return ErrControllerNotConfigured
	}
	if caller != r.data.Controller {
		return ErrNotGovernance
	}
	return nil
}

// checkChanger admits the admin plus authorized callers, so the council
// module can drive two-phase role changes without holding the controller seat.
func (r *AuthorityRegistry) checkChanger(caller common.Address) error {
	if r.data.AuthorizedCallers[caller] {
		return nil
	}
	return r.checkAdmin(caller)
}

func (r *AuthorityRegistry) hasRole(role common.Hash, account common.Address) bool {
	return r.data.Roles[role][account]
}

// HasRole answers role queries for authorized callers only.
func (r *AuthorityRegistry) HasRole(caller common.Address, role common.Hash, account common.Address) (bool, error) {
	if !r.data.AuthorizedCallers[caller] {
		return false, fmt.Errorf("%w: %v", ErrUnauthorizedCaller, caller)
	}
	return r.hasRole(role, account), nil
}

func (r *AuthorityRegistry) CheckRole(caller common.Address, role common.Hash, account common.Address) error {
	ok, err := r.HasRole(caller, role, account)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s %v", ErrMissingRole, types.RoleName(role), account)
	}
	return nil
}

func (r *AuthorityRegistry) setRole(sender common.Address, role common.Hash, account common.Address, grant bool, reason string) {
	if r.hasRole(role, account) == grant {
		return
	}
	members := r.data.Roles[role]
	if members == nil {
		members = make(map[common.Address]bool)
		r.data.Roles[role] = members
	}
	if grant {
		members[account] = true
	} else {
		delete(members, account)
	}
	r.env.emit(types.EncodeEventRole(&types.EventRole{
		Role:    role,
		Account: account,
		Sender:  sender,
		Reason:  reason,
		Granted: grant,
	}))
}

func validRoleTarget(role common.Hash, account common.Address) error {
	if !types.IsKnownRole(role) {
		return fmt.Errorf("%w: %v", ErrUnknownRole, role)
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	return nil
}

func (r *AuthorityRegistry) GrantRole(caller common.Address, role common.Hash, account common.Address, reason string) error {
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if err := validRoleTarget(role, account); err != nil {
		return err
	}
	r.setRole(caller, role, account, true, reason)
	return nil
}

func (r *AuthorityRegistry) RevokeRole(caller common.Address, role common.Hash, account common.Address, reason string) error {
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if err := validRoleTarget(role, account); err != nil {
		return err
	}
	r.setRole(caller, role, account, false, reason)
	return nil
}

// ProposeRoleChange records a pending grant or revoke. Proposing a change
// identical to one still pending returns the existing id.
func (r *AuthorityRegistry) ProposeRoleChange(caller common.Address, role common.Hash, account common.Address, grant bool) (uint64, error) {
	if err := r.checkChanger(caller); err != nil {
		return 0, err
	}
	if err := validRoleTarget(role, account); err != nil {
		return 0, err
	}
	for id := uint64(1); id < r.data.NextChange; id++ {
		c, ok := r.data.Changes[id]
		if ok && !c.Executed && c.Role == role && c.Account == account && c.Grant == grant {
			return id, nil
		}
	}
	id := r.data.NextChange
	r.data.NextChange++
	r.data.Changes[id] = &RoleChange{
		ID:         id,
		Role:       role,
		Account:    account,
		Grant:      grant,
		ProposedBy: caller,
		ProposedAt: r.env.now,
	}
	r.env.emit(types.EncodeEventRoleChange(&types.EventRoleChange{
		Change:  id,
		Role:    role,
		Account: account,
		Grant:   grant,
	}))
	return id, nil
}

func (r *AuthorityRegistry) ExecuteRoleChange(caller common.Address, id uint64) error {
	if err := r.checkChanger(caller); err != nil {
		return err
	}
	c, ok := r.data.Changes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrRoleChangeNotFound, id)
	}
	if c.Executed {
		return fmt.Errorf("%w: %d", ErrRoleChangeExecuted, id)
	}
	c.Executed = true
	r.setRole(caller, c.Role, c.Account, c.Grant, fmt.Sprintf("role change %d", id))
	r.env.emit(types.EncodeEventRoleChange(&types.EventRoleChange{
		Change:   id,
		Role:     c.Role,
		Account:  c.Account,
		Grant:    c.Grant,
		Executed: true,
	}))
	return nil
}

// RetryRoleChange re-attempts a pending change whose earlier execution failed.
func (r *AuthorityRegistry) RetryRoleChange(caller common.Address, id uint64) error {
	return r.ExecuteRoleChange(caller, id)
}

func (r *AuthorityRegistry) SetAuthorizedCaller(caller, target common.Address, allowed bool) error {
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if target == (common.Address{}) {
		return ErrZeroAddress
	}
	if allowed {
		r.data.AuthorizedCallers[target] = true
	} else {
		delete(r.data.AuthorizedCallers, target)
	}
	r.env.emit(types.EncodeEventAuthorizedCaller(&types.EventAuthorizedCaller{
		Caller:  target,
		Allowed: allowed,
	}))
	return nil
}

func (r *AuthorityRegistry) ToggleEmergencyMode(caller common.Address, active bool) error {
	if caller != r.data.EmergencyAdmin {
		return ErrNotEmergencyAdmin
	}
	r.data.EmergencyMode = active
	r.env.emit(types.EncodeEventEmergencyMode(&types.EventEmergencyMode{
		Active: active,
		Admin:  caller,
	}))
	return nil
}

// UpdateGovernanceController hands the controller seat to next. Only the
// current controller may do so once the setup window has passed.
func (r *AuthorityRegistry) UpdateGovernanceController(caller, next common.Address) error {
	if next == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	prev := r.data.Controller
	r.data.Controller = next
	r.env.emit(types.EncodeEventControllerUpdated(&types.EventControllerUpdated{
		Previous: prev,
		Next:     next,
	}))
	return nil
}

// CloseSetup ends the bootstrap window for good.
func (r *AuthorityRegistry) CloseSetup(caller common.Address) error {
	if r.data.SetupClosed {
		return ErrSetupClosed
	}
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if r.data.Controller == (common.Address{}) {
		return ErrControllerNotConfigured
	}
	r.data.SetupClosed = true
	r.env.emit(types.EncodeEventControllerUpdated(&types.EventControllerUpdated{
		Previous: r.data.Controller,
		Next:     r.data.Controller,
		Closed:   true,
	}))
	return nil
}

func (r *AuthorityRegistry) UpdateEmergencyAdmin(caller, next common.Address) error {
	if next == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	r.data.EmergencyAdmin = next
	return nil
}

// IsGovernance reports whether addr is the controller or holds the
// governance role.
func (r *AuthorityRegistry) IsGovernance(addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}
	return addr == r.data.Controller || r.hasRole(types.RoleGovernance, addr)
}

func (r *AuthorityRegistry) EmergencyMode() bool { return r.data.EmergencyMode }

func (r *AuthorityRegistry) EmergencyAdmin() common.Address { return r.data.EmergencyAdmin }

func (r *AuthorityRegistry) GovernanceController() common.Address { return r.data.Controller }

func (r *AuthorityRegistry) SetupOpen() bool { return r.setupOpen() }

func (r *AuthorityRegistry) IsAuthorizedCaller(addr common.Address) bool {
	return r.data.AuthorizedCallers[addr]
}

func (r *AuthorityRegistry) RoleChange(id uint64) (*RoleChange, bool) {
	c, ok := r.data.Changes[id]
	if !ok {
		return nil, false
	}
	cc := *c
	return &cc, true
}

// RoleMembers lists the holders of role in address order.
func (r *AuthorityRegistry) RoleMembers(role common.Hash) []common.Address {
	return sortedKeys(r.data.Roles[role])
}

// RolesOf lists the known roles held by account.
func (r *AuthorityRegistry) RolesOf(account common.Address) []string {
	var roles []string
	for _, name := range []string{"MINTER", "BURNER", "BLACKLIST_MANAGER", "GOVERNANCE"} {
		role, _ := types.RoleByName(name)
		if r.hasRole(role, account) {
			roles = append(roles, name)
		}
	}
	return roles
}

type AuthorityInfo struct {
	Controller        common.Address   `json:"controller"`
	EmergencyAdmin    common.Address   `json:"emergencyAdmin"`
	EmergencyMode     bool             `json:"emergencyMode"`
	Bootstrap         common.Address   `json:"bootstrap"`
	SetupDeadline     uint64           `json:"setupDeadline"`
	SetupOpen         bool             `json:"setupOpen"`
	AuthorizedCallers []common.Address `json:"authorizedCallers"`
}

func (r *AuthorityRegistry) Info() *AuthorityInfo {
	return &AuthorityInfo{
		Controller:        r.data.Controller,
		EmergencyAdmin:    r.data.EmergencyAdmin,
		EmergencyMode:     r.data.EmergencyMode,
		Bootstrap:         r.data.Bootstrap,
		SetupDeadline:     r.data.SetupDeadline,
		SetupOpen:         r.setupOpen(),
		AuthorizedCallers: sortedKeys(r.data.AuthorizedCallers),
	}
}
