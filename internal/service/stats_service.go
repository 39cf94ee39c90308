package service

import (
	"context"

	"recovr/internal/dto"
	"recovr/internal/model"
	"recovr/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// StatsService builds the company and salesman dashboards from client totals.
type StatsService interface {
	Company(ctx context.Context) (*dto.CompanyStatsResponse, error)
	Salesman(ctx context.Context, salesmanID uuid.UUID) (*dto.SalesmanStatsResponse, error)
}

type statsService struct {
	clients repository.ClientRepository
	users   repository.UserRepository
}

func NewStatsService(clients repository.ClientRepository, users repository.UserRepository) StatsService {
	return &statsService{clients: clients, users: users}
}

func (s *statsService) Company(ctx context.Context) (*dto.CompanyStatsResponse, error) {
	var (
		clients []model.Client
		users   []model.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.clients.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.CompanyStatsResponse{
		TotalRecovered: decimal.Zero,
		TotalPending:   decimal.Zero,
		ClientCount:    len(clients),
		Salesmen:       []dto.SalesmanPerformance{},
	}

	perSalesman := make(map[uuid.UUID]*dto.SalesmanPerformance)
	for _, u := range users {
		if u.Role != model.RoleSalesman {
			continue
		}
		resp.Salesmen = append(resp.Salesmen, dto.SalesmanPerformance{
			SalesmanID: u.ID.String(),
			Name:       u.Name,
			Recovered:  decimal.Zero,
			Pending:    decimal.Zero,
		})
	}
	for i := range resp.Salesmen {
		id, _ := uuid.Parse(resp.Salesmen[i].SalesmanID)
		perSalesman[id] = &resp.Salesmen[i]
	}

	for _, c := range clients {
		resp.TotalRecovered = resp.TotalRecovered.Add(c.TotalRecovered)
		resp.TotalPending = resp.TotalPending.Add(c.TotalPending)
		if perf, ok := perSalesman[c.SalesmanID]; ok {
			perf.ClientCount++
			perf.Recovered = perf.Recovered.Add(c.TotalRecovered)
			perf.Pending = perf.Pending.Add(c.TotalPending)
		}
	}
	return resp, nil
}

func (s *statsService) Salesman(ctx context.Context, salesmanID uuid.UUID) (*dto.SalesmanStatsResponse, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.SalesmanStatsResponse{TotalRecovered: decimal.Zero, TotalPending: decimal.Zero}
	for _, c := range clients {
		if c.SalesmanID != salesmanID {
			continue
		}
		resp.ClientCount++
		resp.TotalRecovered = resp.TotalRecovered.Add(c.TotalRecovered)
		resp.TotalPending = resp.TotalPending.Add(c.TotalPending)
	}
	resp.PortfolioValue = resp.TotalRecovered.Add(resp.TotalPending)
	resp.EfficiencyPct = Efficiency(resp.TotalRecovered, resp.TotalPending)
	return resp, nil
}

// Efficiency is round(recovered / (recovered + pending) * 100), or 0 for an
// empty portfolio.
func Efficiency(recovered, pending decimal.Decimal) int64 {
	total := recovered.Add(pending)
	if !total.IsPositive() {
		return 0
	}
	return recovered.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
