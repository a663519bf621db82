package components

import (
	"math/rand/v2"
	"sort"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/retail-banking-ledger/internal/domain/account"
)

// RecipientSelector picks the account credited by a P2P transfer among the
// recipient's eligible accounts. It is never called with an empty slice.
type RecipientSelector interface {
	Select(eligible []*account.Account) *account.Account
}

// NewRecipientSelector returns the selector for the configured policy.
func NewRecipientSelector(policy string) RecipientSelector {
	if policy == config.RecipientPolicyRandom {
		return &RandomRecipientSelector{intN: rand.IntN}
	}
	return PrimaryRecipientSelector{}
}

var primaryRank = map[account.Type]int{
	account.TypeChecking: 0,
	account.TypeSavings:  1,
	account.TypeBusiness: 2,
}

// PrimaryRecipientSelector prefers checking, then savings, then business
// accounts, the oldest first within a type.
type PrimaryRecipientSelector struct{}

func (PrimaryRecipientSelector) Select(eligible []*account.Account) *account.Account {
	ranked := append([]*account.Account(nil), eligible...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := primaryRank[ranked[i].Type], primaryRank[ranked[j].Type]
		if ri != rj {
			return ri < rj
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})
	return ranked[0]
}

// RandomRecipientSelector picks uniformly among eligible accounts.
type RandomRecipientSelector struct {
	intN func(n int) int
}

func (s *RandomRecipientSelector) Select(eligible []*account.Account) *account.Account {
	return eligible[s.intN(len(eligible))]
}
