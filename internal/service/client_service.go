package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"recovr/internal/dto"
	"recovr/internal/kvstore"
	"recovr/internal/model"
	"recovr/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ClientService is the client registry: enrollment and lookup of shops.
// Balances are never written here; see LedgerService.
type ClientService interface {
	Enroll(ctx context.Context, salesmanID uuid.UUID, draft dto.ClientDraft) (*dto.ClientResponse, error)
	Lookup(ctx context.Context, filter dto.ClientFilter) ([]dto.ClientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error)
	// FindForUser resolves the shop a CLIENT account belongs to.
	FindForUser(ctx context.Context, userID uuid.UUID) (*dto.ClientResponse, error)
}

type clientService struct {
	clients repository.ClientRepository
	users   repository.UserRepository
	now     func() time.Time
}

func NewClientService(clients repository.ClientRepository, users repository.UserRepository) ClientService {
	return &clientService{clients: clients, users: users, now: time.Now}
}

// ── Enroll ────────────────────────────────────────────────────────────────────

func (s *clientService) Enroll(ctx context.Context, salesmanID uuid.UUID, draft dto.ClientDraft) (*dto.ClientResponse, error) {
	shopName := strings.TrimSpace(draft.ShopName)
	if runeLen(shopName) < 4 {
		return nil, ErrShopNameTooShort
	}
	cnic := Digits(draft.CNIC)
	if len(cnic) != cnicDigits {
		return nil, ErrInvalidCNIC
	}
	phone := Digits(draft.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	// Fixed outside the update closure: the store may run it more than once.
	client := model.Client{
		ID:             uuid.New(),
		ShopName:       shopName,
		Phone:          phone,
		CNIC:           cnic,
		Location:       strings.TrimSpace(draft.Location),
		SalesmanID:     salesmanID,
		TotalPending:   decimal.Zero,
		TotalRecovered: decimal.Zero,
		CreatedAt:      s.now().UTC(),
	}

	err := s.clients.Store().Update(ctx, []string{repository.ClientsCollection}, func(txn kvstore.Txn) error {
		existing, err := s.clients.ListTx(txn)
		if err != nil {
			return err
		}
		for _, c := range existing {
			if Digits(c.CNIC) == cnic {
				return &DuplicateIdentityError{ShopName: c.ShopName}
			}
		}
		return s.clients.SaveAllTx(txn, append(existing, client))
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("client_id", client.ID.String()).
		Str("salesman_id", salesmanID.String()).
		Msg("client enrolled")
	resp := clientToResponse(&client)
	return &resp, nil
}

// ── Lookup ────────────────────────────────────────────────────────────────────

func (s *clientService) Lookup(ctx context.Context, filter dto.ClientFilter) ([]dto.ClientResponse, error) {
	all, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}

	var matched []model.Client
	switch {
	case filter.SalesmanID != "":
		sid, err := uuid.Parse(filter.SalesmanID)
		if err != nil {
			return nil, fmt.Errorf("salesman_id: %w", err)
		}
		for _, c := range all {
			if c.SalesmanID == sid {
				matched = append(matched, c)
			}
		}
	case filter.CNIC != "" || filter.Phone != "":
		matched = matchIdentity(all, Digits(filter.CNIC), Digits(filter.Phone))
	default:
		matched = all
	}

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		qDigits := Digits(q)
		filtered := matched[:0:0]
		for _, c := range matched {
			if strings.Contains(strings.ToLower(c.ShopName), q) ||
				(qDigits != "" && strings.Contains(c.Phone, qDigits)) {
				filtered = append(filtered, c)
			}
		}
		matched = filtered
	}

	if filter.Sort == "pending_desc" {
		sorted := append([]model.Client(nil), matched...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].TotalPending.GreaterThan(sorted[j].TotalPending)
		})
		matched = sorted
	}

	out := make([]dto.ClientResponse, len(matched))
	for i := range matched {
		out[i] = clientToResponse(&matched[i])
	}
	return out, nil
}

// matchIdentity keeps clients whose normalized CNIC or phone equals the
// given value. Empty values never match.
func matchIdentity(all []model.Client, cnic, phone string) []model.Client {
	var out []model.Client
	for _, c := range all {
		if (cnic != "" && Digits(c.CNIC) == cnic) || (phone != "" && Digits(c.Phone) == phone) {
			out = append(out, c)
		}
	}
	return out
}

func (s *clientService) Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error) {
	c, err := s.clients.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	resp := clientToResponse(c)
	return &resp, nil
}

func (s *clientService) FindForUser(ctx context.Context, userID uuid.UUID) (*dto.ClientResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	all, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := matchIdentity(all, Digits(u.CNIC), Digits(u.Phone))
	if len(matched) == 0 {
		return nil, ErrNoClientProfile
	}
	resp := clientToResponse(&matched[0])
	return &resp, nil
}

func clientToResponse(c *model.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:             c.ID.String(),
		ShopName:       c.ShopName,
		Phone:          c.Phone,
		CNIC:           c.CNIC,
		Location:       c.Location,
		SalesmanID:     c.SalesmanID.String(),
		TotalPending:   c.TotalPending,
		TotalRecovered: c.TotalRecovered,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}
