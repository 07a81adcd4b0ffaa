// Package directory manages portal members and the one privileged write path
// this service owns: the administrative role change.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"usfconnect.africa/internal/audit"
	"usfconnect.africa/internal/roles"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("resource conflict")
)

const (
	MemberStatusActive   = "active"
	MemberStatusDisabled = "disabled"
)

// Member is one portal identity. Role is immutable except through
// Service.SetRole.
type Member struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Country      string     `json:"country"`
	Role         roles.Role `json:"role"`
	PasswordHash string     `json:"-"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Store persists members.
type Store interface {
	CreateMember(ctx context.Context, m Member) (Member, error)
	GetMember(ctx context.Context, id string) (Member, error)
	GetMemberByEmail(ctx context.Context, email string) (Member, error)
	ListMembers(ctx context.Context, country string) ([]Member, error)
	UpdateMemberRole(ctx context.Context, id string, role roles.Role) (Member, error)
}

// Service validates and executes directory operations.
type Service struct {
	store Store
}

// NewService constructs the directory service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("directory store is required")
	}
	return &Service{store: store}, nil
}

// CreateMember registers a new member. Unknown role input degrades to reader.
func (s *Service) CreateMember(ctx context.Context, email, password, name, country, role string) (Member, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return Member{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return Member{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return Member{}, err
	}
	member := Member{
		Email:        email,
		Name:         name,
		Country:      strings.TrimSpace(country),
		Role:         roles.Parse(role),
		PasswordHash: hash,
		Status:       MemberStatusActive,
	}
	return s.store.CreateMember(ctx, member)
}

// GetMember fetches one member by id.
func (s *Service) GetMember(ctx context.Context, id string) (Member, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Member{}, fmt.Errorf("%w: member_id is required", ErrInvalidInput)
	}
	return s.store.GetMember(ctx, id)
}

// ListMembers returns members, optionally filtered to one country.
func (s *Service) ListMembers(ctx context.Context, country string) ([]Member, error) {
	return s.store.ListMembers(ctx, strings.TrimSpace(country))
}

// Authenticate verifies a member's credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Member, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return Member{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	member, err := s.store.GetMemberByEmail(ctx, email)
	if err != nil {
		return Member{}, err
	}
	if member.Status != MemberStatusActive {
		return Member{}, ErrNotFound
	}
	ok, err := verifyPassword(password, member.PasswordHash)
	if err != nil || !ok {
		return Member{}, ErrNotFound
	}
	return member, nil
}

// SetRole is the administrative role change. The new role must name a known
// role exactly; members keep their role until this succeeds.
func (s *Service) SetRole(ctx context.Context, memberID, newRole string) (Member, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return Member{}, fmt.Errorf("%w: member_id is required", ErrInvalidInput)
	}
	if !roles.Valid(newRole) {
		return Member{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, newRole)
	}
	member, err := s.store.UpdateMemberRole(ctx, memberID, roles.Parse(newRole))
	if err != nil {
		return Member{}, err
	}
	_ = audit.LogEvent(ctx, "directory.member.role_changed", map[string]any{
		"member_id": member.ID,
		"new_role":  member.Role.String(),
	})
	return member, nil
}
