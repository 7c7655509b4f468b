package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/returns-service/internal/domain"
	"github.com/spec-kit/returns-service/internal/repository"
)

// Fixed ids keep demo records stable across calls to SeedDemo.
const (
	DemoTenantID = "9b1f6c2e-4d3a-4f0e-8a57-1c2d3e4f5a60"
	demoDrillID  = "3e0c8f7a-2b1d-4c5e-9f6a-7b8c9d0e1f21"
	demoSawID    = "5a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c13"
)

// DemoData is what SeedDemo leaves in the store.
type DemoData struct {
	Tenant   domain.Tenant
	Users    []domain.User
	Products []domain.Product
}

// SeedDemo creates a demo tenant with a client, a staff reviewer, an admin
// and two catalog products. Users that already exist are looked up by e-mail
// instead of recreated, so calling it twice is harmless.
func (s *Store) SeedDemo(ctx context.Context) (*DemoData, error) {
	tenant := s.AddTenant(domain.Tenant{ID: DemoTenantID, Name: "Acme Tools", TaxID: "11222333000181"})
	data := &DemoData{
		Tenant: tenant,
		Products: []domain.Product{
			s.AddProduct(domain.Product{ID: demoDrillID, SKU: "DRL-100", Name: "Impact drill"}),
			s.AddProduct(domain.Product{ID: demoSawID, SKU: "SAW-200", Name: "Circular saw"}),
		},
	}

	seeds := []domain.User{
		{TenantID: &tenant.ID, Name: "Demo Client", Email: "client@acme.test", Role: domain.RoleClient},
		{Name: "Demo Reviewer", Email: "staff@returns.test", Role: domain.RoleStaff},
		{Name: "Demo Admin", Email: "admin@returns.test", Role: domain.RoleAdmin},
	}
	users := s.Users()
	for _, seed := range seeds {
		existing, err := users.GetByEmail(ctx, seed.Email)
		switch {
		case err == nil:
			data.Users = append(data.Users, *existing)
			continue
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("look up %s: %w", seed.Email, err)
		}
		user := seed
		if err := users.Create(ctx, &user); err != nil {
			return nil, fmt.Errorf("create %s: %w", seed.Email, err)
		}
		data.Users = append(data.Users, user)
	}
	return data, nil
}
