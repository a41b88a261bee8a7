package patient

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	p, ok := m.patients[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.IsActive = false
	return nil
}

func (m *mockRepo) List(_ context.Context, params SearchParams, limit, offset int) ([]*Patient, int, error) {
	var all []*Patient
	for _, p := range m.patients {
		if params.Name != "" &&
			!strings.Contains(strings.ToLower(p.FirstName), strings.ToLower(params.Name)) &&
			!strings.Contains(strings.ToLower(p.LastName), strings.ToLower(params.Name)) {
			continue
		}
		if params.Active != nil && p.IsActive != *params.Active {
			continue
		}
		all = append(all, p)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func testPatient() *Patient {
	phone := "+1-555-0100"
	return &Patient{
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: time.Date(1985, 6, 14, 0, 0, 0, 0, time.UTC),
		Gender:      "female",
		Phone:       &phone,
	}
}

func TestCreatePatient(t *testing.T) {
	svc, _ := newTestService()

	p := testPatient()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if !p.IsActive {
		t.Error("new patients should be active")
	}
}

func TestCreatePatientValidation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name   string
		mutate func(*Patient)
	}{
		{"missing first name", func(p *Patient) { p.FirstName = "" }},
		{"missing last name", func(p *Patient) { p.LastName = "" }},
		{"missing date of birth", func(p *Patient) { p.DateOfBirth = time.Time{} }},
		{"future date of birth", func(p *Patient) { p.DateOfBirth = time.Now().Add(24 * time.Hour) }},
		{"missing gender", func(p *Patient) { p.Gender = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPatient()
			tt.mutate(p)
			if err := svc.Create(context.Background(), p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDeactivatePatient(t *testing.T) {
	svc, repo := newTestService()
	p := testPatient()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if repo.patients[p.ID].IsActive {
		t.Error("patient should be inactive")
	}
	// Record survives deactivation.
	if _, err := svc.Get(context.Background(), p.ID); err != nil {
		t.Errorf("deactivated patient should still be readable: %v", err)
	}
}

func TestListPatientsByName(t *testing.T) {
	svc, _ := newTestService()
	for _, name := range [][2]string{{"Jane", "Doe"}, {"John", "Doe"}, {"Alice", "Smith"}} {
		p := testPatient()
		p.FirstName, p.LastName = name[0], name[1]
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	_, total, err := svc.List(context.Background(), SearchParams{Name: "doe"}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestListPatientsActiveFilter(t *testing.T) {
	svc, _ := newTestService()
	active := testPatient()
	retired := testPatient()
	svc.Create(context.Background(), active)
	svc.Create(context.Background(), retired)
	svc.Deactivate(context.Background(), retired.ID)

	isActive := true
	got, total, err := svc.List(context.Background(), SearchParams{Active: &isActive}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(got) != 1 {
		t.Fatalf("total = %d, len = %d, want 1 active patient", total, len(got))
	}
	if got[0].ID != active.ID {
		t.Errorf("got %v, want %v", got[0].ID, active.ID)
	}
}

func TestPatientAge(t *testing.T) {
	p := &Patient{DateOfBirth: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), 34},
		{time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 35},
		{time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 35},
	}
	for _, tt := range tests {
		if got := p.Age(tt.at); got != tt.want {
			t.Errorf("Age(%s) = %d, want %d", tt.at.Format("2006-01-02"), got, tt.want)
		}
	}
}
