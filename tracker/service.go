package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carbonledger-labs/carbonledger-go/internal/catalog"
	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
	"github.com/carbonledger-labs/carbonledger-go/internal/engine"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/auditlog"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/auth"
	"github.com/carbonledger-labs/carbonledger-go/internal/registry"
	"github.com/carbonledger-labs/carbonledger-go/internal/repo"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownProcess     = errors.New("unknown process")
)

type auditContext struct {
	Actor      string
	RequestID  string
	RemoteAddr string
	UserAgent  string
	Path       string
}

type trackerService struct {
	users    repo.UserRepository
	factors  repo.FactorRepository
	records  repo.EmissionRepository
	registry *registry.Registry
	engine   *engine.Engine
	audit    auditlog.QueryRower
	authCfg  auth.Config
	now      func() time.Time
	newID    func() string
}

func newTrackerService(users repo.UserRepository, factors repo.FactorRepository, records repo.EmissionRepository, reg *registry.Registry, eng *engine.Engine, audit auditlog.QueryRower, authCfg auth.Config) *trackerService {
	return &trackerService{
		users:    users,
		factors:  factors,
		records:  records,
		registry: reg,
		engine:   eng,
		audit:    audit,
		authCfg:  authCfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type registration struct {
	Username    string
	Password    string
	Email       string
	NodalPerson string
	Designation string
	Company     string
	Phone       string
}

func (s *trackerService) Register(ctx context.Context, reg registration, auditCtx auditContext) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, fmt.Errorf("tracker service not initialized")
	}
	username := strings.TrimSpace(reg.Username)
	if username == "" {
		return domain.User{}, fmt.Errorf("username is required")
	}
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return domain.User{}, err
	}

	roles := []string{auth.RoleUser}
	if s.authCfg.IsAdminUser(username) {
		roles = append(roles, auth.RoleAdmin)
	}

	user := domain.User{
		UserKey:      s.newID(),
		Username:     username,
		PasswordHash: hash,
		Email:        strings.TrimSpace(reg.Email),
		NodalPerson:  strings.TrimSpace(reg.NodalPerson),
		Designation:  strings.TrimSpace(reg.Designation),
		Company:      strings.TrimSpace(reg.Company),
		Phone:        strings.TrimSpace(reg.Phone),
		Roles:        roles,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	s.insertAudit(ctx, auditlog.Event{
		OccurredAt:   user.CreatedAt,
		Actor:        user.UserKey,
		Action:       "user.register",
		ResourceType: "user",
		ResourceID:   user.UserKey,
		RequestID:    auditCtx.RequestID,
		RemoteAddr:   auditCtx.RemoteAddr,
		UserAgent:    auditCtx.UserAgent,
		Payload: map[string]any{
			"username": user.Username,
			"company":  user.Company,
		},
	})
	return user, nil
}

// Login verifies the password and mints a session token. A missing user
// and a wrong password are indistinguishable to the caller.
func (s *trackerService) Login(ctx context.Context, username, password string, auditCtx auditContext) (string, auth.SessionClaims, error) {
	if s == nil || s.users == nil {
		return "", auth.SessionClaims{}, fmt.Errorf("tracker service not initialized")
	}
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", auth.SessionClaims{}, ErrInvalidCredentials
		}
		return "", auth.SessionClaims{}, err
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", auth.SessionClaims{}, ErrInvalidCredentials
		}
		return "", auth.SessionClaims{}, err
	}

	now := s.now().UTC()
	claims := auth.SessionClaims{
		UserKey:       user.UserKey,
		Username:      user.Username,
		Email:         user.Email,
		Roles:         user.Roles,
		ExpiresAtUnix: now.Add(s.authCfg.SessionTTL).Unix(),
	}
	token, err := auth.GenerateSessionToken(s.authCfg.SessionSecret, claims, now)
	if err != nil {
		return "", auth.SessionClaims{}, err
	}

	s.insertAudit(ctx, auditlog.Event{
		OccurredAt:   now,
		Actor:        user.UserKey,
		Action:       "user.login",
		ResourceType: "user",
		ResourceID:   user.UserKey,
		RequestID:    auditCtx.RequestID,
		RemoteAddr:   auditCtx.RemoteAddr,
		UserAgent:    auditCtx.UserAgent,
		Payload:      map[string]any{"username": user.Username},
	})
	return token, claims, nil
}

// SubmitEmission computes the activity value for the submitted process
// and appends one immutable record. The factor lookup happens before
// anything is written; an unconfigured process never stores a record.
func (s *trackerService) SubmitEmission(ctx context.Context, ownerKey, processCode string, inputs engine.Submission, auditCtx auditContext) (domain.EmissionRecord, error) {
	if s == nil || s.records == nil {
		return domain.EmissionRecord{}, fmt.Errorf("tracker service not initialized")
	}
	processCode = strings.ToUpper(strings.TrimSpace(processCode))
	if processCode == "" {
		return domain.EmissionRecord{}, ErrUnknownProcess
	}

	entry, err := s.factors.Get(ctx, processCode)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.EmissionRecord{}, ErrUnknownProcess
		}
		return domain.EmissionRecord{}, err
	}

	activity, details, err := s.engine.ComputeActivity(processCode, inputs)
	if err != nil {
		return domain.EmissionRecord{}, err
	}

	now := s.now().UTC()
	record := domain.EmissionRecord{
		ID:           s.newID(),
		OwnerKey:     ownerKey,
		ProcessCode:  processCode,
		ProcessDesc:  entry.ProcessDesc,
		Scope:        entry.Scope,
		Unit:         entry.Unit,
		InputDetails: details,
		FactorUsed:   entry.Factor,
		Emission:     engine.Emission(activity, entry.Factor),
		CreatedAt:    now,
	}
	if err := s.records.Insert(ctx, record); err != nil {
		return domain.EmissionRecord{}, err
	}

	s.insertAudit(ctx, auditlog.Event{
		OccurredAt:   now,
		Actor:        ownerKey,
		Action:       "emission.submit",
		ResourceType: "emission",
		ResourceID:   record.ID,
		RequestID:    auditCtx.RequestID,
		RemoteAddr:   auditCtx.RemoteAddr,
		UserAgent:    auditCtx.UserAgent,
		Payload: map[string]any{
			"process_code": processCode,
			"factor_used":  entry.Factor,
			"emission":     record.Emission,
		},
	})
	return record, nil
}

// ListCatalog returns every configured process ordered by description,
// the order the selection form shows them in.
func (s *trackerService) ListCatalog(ctx context.Context) ([]domain.FactorEntry, error) {
	if s == nil || s.factors == nil {
		return nil, fmt.Errorf("tracker service not initialized")
	}
	entries, err := s.factors.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ProcessDesc < entries[j].ProcessDesc })
	return entries, nil
}

func (s *trackerService) ListEmissions(ctx context.Context, ownerKey string, limit int) ([]domain.EmissionRecord, error) {
	if s == nil || s.records == nil {
		return nil, fmt.Errorf("tracker service not initialized")
	}
	return s.records.List(ctx, repo.RecordFilter{OwnerKey: ownerKey, Limit: limit})
}

type dashboard struct {
	TotalEmission float64             `json:"total_emission_kg"`
	ByScope       []repo.ScopeTotal   `json:"by_scope"`
	TopProcesses  []repo.ProcessTotal `json:"top_processes"`
}

func (s *trackerService) Dashboard(ctx context.Context, ownerKey string) (dashboard, error) {
	if s == nil || s.records == nil {
		return dashboard{}, fmt.Errorf("tracker service not initialized")
	}
	total, err := s.records.TotalEmission(ctx, ownerKey)
	if err != nil {
		return dashboard{}, err
	}
	byScope, err := s.records.TotalsByScope(ctx, ownerKey)
	if err != nil {
		return dashboard{}, err
	}
	top, err := s.records.TopProcesses(ctx, ownerKey, 5)
	if err != nil {
		return dashboard{}, err
	}
	return dashboard{
		TotalEmission: total,
		ByScope:       byScope,
		TopProcesses:  top,
	}, nil
}

// RebuildCatalog parses an uploaded master workbook and rebuilds the
// factor catalog from it. Historical backfill is not part of the upload
// path; that belongs to the batch loader.
func (s *trackerService) RebuildCatalog(ctx context.Context, workbook io.Reader, actor string, auditCtx auditContext) (catalog.Report, error) {
	if s == nil || s.factors == nil {
		return catalog.Report{}, fmt.Errorf("tracker service not initialized")
	}
	wb, err := catalog.OpenWorkbook(workbook)
	if err != nil {
		return catalog.Report{}, fmt.Errorf("open workbook: %w", err)
	}

	builder := catalog.NewBuilder(s.factors, s.records, nil)
	report, err := builder.BuildFactors(ctx, wb)
	if err != nil {
		return catalog.Report{}, err
	}

	s.insertAudit(ctx, auditlog.Event{
		OccurredAt:   s.now().UTC(),
		Actor:        actor,
		Action:       "catalog.rebuild",
		ResourceType: "catalog",
		ResourceID:   catalog.FactorSheetName,
		RequestID:    auditCtx.RequestID,
		RemoteAddr:   auditCtx.RemoteAddr,
		UserAgent:    auditCtx.UserAgent,
		Payload: map[string]any{
			"factors_upserted": report.FactorsUpserted,
			"not_configured":   report.NotConfigured,
		},
	})
	return report, nil
}

func (s *trackerService) insertAudit(ctx context.Context, event auditlog.Event) {
	if s.audit == nil {
		return
	}
	_, _ = auditlog.Insert(ctx, s.audit, event)
}
