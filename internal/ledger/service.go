package ledger

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
)

// Service exposes read access to the ledger. Writes happen only inside the
// sale scope through Repository.WithTx.
type Service interface {
	List(ctx context.Context, joinItem bool) ([]TransactionDTO, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, joinItem bool) ([]TransactionDTO, error) {
	rows, err := s.repo.List(ctx, ListOptions{JoinItem: joinItem})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list transactions")
	}
	return FromModels(rows), nil
}
