package state

import (
	"fmt"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// InitGenesis seeds a fresh state from the app_state of the genesis file.
// genesisTime is the chain start in unix seconds.
func (s *State) InitGenesis(g *types.GenesisState, genesisTime uint64) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.SetTime(genesisTime)

	cfg := CouncilConfig{
		VotingPeriod:  g.CouncilParams.VotingPeriod,
		TimeLock:      g.CouncilParams.TimeLock,
		QuorumPercent: g.CouncilParams.QuorumPercent,
	}
	if cfg == (CouncilConfig{}) {
		cfg = DefaultCouncilConfig()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	maxSupply, err := uint256.FromDecimal(g.Token.MaxSupply)
	if err != nil {
		return fmt.Errorf("genesis max supply: %w", err)
	}

	s.authority = NewAuthorityRegistry(s.env, g.Bootstrap, g.EmergencyAdmin, genesisTime+g.SetupWindow)
	s.authority.data.Controller = g.Controller
	s.council = NewCouncil(s.env, s.authority, cfg)
	s.token = NewToken(s.env, s.authority, g.Token.Name, g.Token.Symbol, g.Token.Decimals, maxSupply)
	s.bank = NewBank(s.env)
	s.collateral = NewCollateralLedger(s.env, s.token, s.bank, s.authority)
	s.wire()

	for _, name := range []string{types.TokenModule, types.CollateralModule, types.CouncilModule} {
		s.authority.data.AuthorizedCallers[types.ModuleAddress(name)] = true
	}
	for _, c := range g.AuthorizedCallers {
		s.authority.data.AuthorizedCallers[c] = true
	}
	for _, r := range g.Roles {
		role, ok := types.RoleByName(r.Role)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRole, r.Role)
		}
		if err := validRoleTarget(role, r.Account); err != nil {
			return err
		}
		s.authority.setRole(common.Address{}, role, r.Account, true, "genesis")
	}

	for _, m := range g.Council {
		if err := s.council.AddGenesisMember(m.Address, m.Power); err != nil {
			return err
		}
	}
	if err := s.council.checkSize(); err != nil {
		return err
	}

	for _, a := range g.Assets {
		decimals := a.Decimals
		if decimals == 0 {
			decimals = DefaultAssetDecimals
		}
		if err := s.bank.RegisterAsset(a.Address, a.Symbol, decimals); err != nil {
			return err
		}
		for _, b := range a.Balances {
			amount, err := uint256.FromDecimal(b.Amount)
			if err != nil {
				return fmt.Errorf("genesis balance of %s: %w", a.Symbol, err)
			}
			if err := s.bank.Credit(a.Address, b.Address, amount); err != nil {
				return err
			}
		}
		if a.Whitelisted {
			s.token.data.Collateral[a.Address] = true
		}
		if a.Ratio != "" {
			ratio, err := ParseRatio(a.Ratio)
			if err != nil {
				return err
			}
			s.collateral.data.Configs[a.Address] = &AssetConfig{Ratio: ratio, Decimals: decimals}
		}
	}

	// Genesis balances bypass the mint role but not the supply cap.
	for _, b := range g.Token.Balances {
		amount, err := uint256.FromDecimal(b.Amount)
		if err != nil {
			return fmt.Errorf("genesis token balance: %w", err)
		}
		if err := s.token.move(common.Address{}, b.Address, amount); err != nil {
			return err
		}
	}

	if g.CloseSetup {
		s.authority.data.SetupClosed = true
	}
	s.env.take()
	return nil
}
