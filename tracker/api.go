package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
	"github.com/carbonledger-labs/carbonledger-go/internal/engine"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/auth"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/objectstore"
	"github.com/carbonledger-labs/carbonledger-go/internal/repo"
)

const csvExportHeader = "Date,Process Description,Scope,Unit,Activity Details,Emission Factor (kg CO2e/unit),Emission (kg CO2e)"

type trackerAPI struct {
	logger         *slog.Logger
	svc            *trackerService
	authCfg        auth.Config
	store          *minio.Client
	storeCfg       objectstore.Config
	uploadMaxBytes int64
}

func newTrackerAPI(logger *slog.Logger, svc *trackerService, authCfg auth.Config, store *minio.Client, storeCfg objectstore.Config, uploadMaxBytes int64) *trackerAPI {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = int64(64) << 20 // 64 MiB
	}
	return &trackerAPI{
		logger:         logger,
		svc:            svc,
		authCfg:        authCfg,
		store:          store,
		storeCfg:       storeCfg,
		uploadMaxBytes: uploadMaxBytes,
	}
}

func (api *trackerAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", api.handleRegister)
	mux.HandleFunc("POST /auth/login", api.handleLogin)
	mux.HandleFunc("GET /auth/session", api.handleSession)
	mux.HandleFunc("POST /auth/logout", api.handleLogout)

	mux.HandleFunc("GET /processes", api.handleListProcesses)
	mux.HandleFunc("GET /processes/{process_code}/questions", api.handleProcessQuestions)

	mux.HandleFunc("POST /emissions", api.handleSubmitEmission)
	mux.HandleFunc("GET /emissions", api.handleListEmissions)
	mux.HandleFunc("GET /emissions/export", api.handleExportEmissions)
	mux.HandleFunc("GET /dashboard", api.handleDashboard)

	mux.HandleFunc("POST /catalog/workbook", api.handleUploadWorkbook)
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	NodalPerson string `json:"nodal_person,omitempty"`
	Designation string `json:"designation,omitempty"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	UserKey     string    `json:"user_key"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	NodalPerson string    `json:"nodal_person,omitempty"`
	Designation string    `json:"designation,omitempty"`
	Company     string    `json:"company,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
}

type catalogEntryResponse struct {
	ProcessCode string  `json:"process_code"`
	ProcessDesc string  `json:"process_desc"`
	Scope       string  `json:"scope"`
	Unit        string  `json:"unit"`
	Factor      float64 `json:"factor"`
}

type processField struct {
	Key      string `json:"key"`
	Question string `json:"question"`
	Unit     string `json:"unit,omitempty"`
}

type processResponse struct {
	ProcessCode string         `json:"process_code"`
	Fields      []processField `json:"fields"`
	Operation   string         `json:"operation"`
}

type submitEmissionRequest struct {
	ProcessCode string            `json:"process_code"`
	Inputs      map[string]string `json:"inputs"`
}

type emissionResponse struct {
	RecordID     string              `json:"record_id"`
	ProcessCode  string              `json:"process_code"`
	ProcessDesc  string              `json:"process_desc"`
	Scope        string              `json:"scope"`
	Unit         string              `json:"unit"`
	InputDetails domain.InputDetails `json:"input_details"`
	FactorUsed   float64             `json:"factor_used"`
	Emission     float64             `json:"emission"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (api *trackerAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		api.writeError(w, r, http.StatusBadRequest, "username_and_email_required")
		return
	}
	if len(req.Password) < 8 {
		api.writeError(w, r, http.StatusBadRequest, "password_too_short")
		return
	}

	user, err := api.svc.Register(r.Context(), registration{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		NodalPerson: req.NodalPerson,
		Designation: req.Designation,
		Company:     req.Company,
		Phone:       req.Phone,
	}, buildAuditContext(r, ""))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			api.writeError(w, r, http.StatusConflict, "username_or_email_exists")
			return
		}
		api.logger.Error("register failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (api *trackerAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	token, claims, err := api.svc.Login(r.Context(), req.Username, req.Password, buildAuditContext(r, ""))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			api.writeError(w, r, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		api.logger.Error("login failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	auth.SetSessionCookie(w, api.authCfg, token)
	api.writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": time.Unix(claims.ExpiresAtUnix, 0).UTC(),
		"user": map[string]any{
			"user_key": claims.UserKey,
			"username": claims.Username,
			"email":    claims.Email,
			"roles":    claims.Roles,
		},
	})
}

func (api *trackerAPI) handleSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"user_key": identity.Subject,
		"username": identity.Username,
		"email":    identity.Email,
		"roles":    identity.Roles,
	})
}

func (api *trackerAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, api.authCfg)
	api.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (api *trackerAPI) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	entries, err := api.svc.ListCatalog(r.Context())
	if err != nil {
		api.logger.Error("list catalog failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	out := make([]catalogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, catalogEntryResponse{
			ProcessCode: entry.ProcessCode,
			ProcessDesc: entry.ProcessDesc,
			Scope:       entry.Scope,
			Unit:        entry.Unit,
			Factor:      entry.Factor,
		})
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"processes": out})
}

// handleProcessQuestions resolves the input schema for one process. A
// miss is not an error: the client falls back to a single generic
// quantity field.
func (api *trackerAPI) handleProcessQuestions(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("process_code"))
	def, ok := api.svc.registry.Lookup(code)
	if !ok {
		api.writeJSON(w, http.StatusOK, processResponse{
			ProcessCode: strings.ToUpper(code),
			Fields:      []processField{},
			Operation:   string(domain.OperationSingle),
		})
		return
	}
	api.writeJSON(w, http.StatusOK, toProcessResponse(def))
}

func (api *trackerAPI) handleSubmitEmission(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req submitEmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	record, err := api.svc.SubmitEmission(r.Context(), identity.Subject, req.ProcessCode, engine.Submission(req.Inputs), buildAuditContext(r, identity.Subject))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownProcess):
			api.writeError(w, r, http.StatusBadRequest, "invalid_process")
		case errors.Is(err, engine.ErrQuantityRequired):
			api.writeError(w, r, http.StatusBadRequest, "quantity_required")
		default:
			api.logger.Error("submit emission failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	api.writeJSON(w, http.StatusCreated, toEmissionResponse(record))
}

func (api *trackerAPI) handleListEmissions(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 1000)
	records, err := api.svc.ListEmissions(r.Context(), identity.Subject, limit)
	if err != nil {
		api.logger.Error("list emissions failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]emissionResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toEmissionResponse(record))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"emissions": out})
}

func (api *trackerAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	dash, err := api.svc.Dashboard(r.Context(), identity.Subject)
	if err != nil {
		api.logger.Error("dashboard failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, dash)
}

func (api *trackerAPI) handleExportEmissions(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := api.svc.ListEmissions(r.Context(), identity.Subject, 0)
	if err != nil {
		api.logger.Error("export failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=carbon_emissions_report.csv`)
	w.WriteHeader(http.StatusOK)

	var buf bytes.Buffer
	buf.WriteString(csvExportHeader)
	buf.WriteByte('\n')
	for _, record := range records {
		buf.WriteString(exportRow(record))
		buf.WriteByte('\n')
	}
	_, _ = w.Write(buf.Bytes())
}

// exportRow renders one CSV line. Free-text columns are quoted with
// doubled inner quotes; numeric columns stay bare.
func exportRow(record domain.EmissionRecord) string {
	pairs := make([]string, 0, len(record.InputDetails))
	for _, pair := range record.InputDetails {
		pairs = append(pairs, pair.Question+": "+pair.Value)
	}
	details := strings.Join(pairs, "; ")
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s",
		record.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		csvQuote(record.ProcessDesc),
		record.Scope,
		record.Unit,
		csvQuote(details),
		strconv.FormatFloat(record.FactorUsed, 'g', -1, 64),
		strconv.FormatFloat(record.Emission, 'g', -1, 64),
	)
}

func csvQuote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func (api *trackerAPI) handleUploadWorkbook(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !auth.HasAtLeast(identity.Roles, auth.RoleAdmin) {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, api.uploadMaxBytes)
	if err := r.ParseMultipartForm(api.uploadMaxBytes); err != nil {
		api.writeError(w, r, http.StatusRequestEntityTooLarge, "upload_too_large")
		return
	}
	file, _, err := r.FormFile("workbook")
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "workbook_file_required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "workbook_read_failed")
		return
	}

	if api.store != nil {
		key := fmt.Sprintf("master/%s.xlsx", time.Now().UTC().Format("20060102T150405Z"))
		if _, err := objectstore.PutWorkbook(r.Context(), api.store, api.storeCfg, key, bytes.NewReader(raw), int64(len(raw))); err != nil {
			api.logger.Error("workbook archive failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
			api.writeError(w, r, http.StatusBadGateway, "object_store_error")
			return
		}
	}

	report, err := api.svc.RebuildCatalog(r.Context(), bytes.NewReader(raw), identity.Subject, buildAuditContext(r, identity.Subject))
	if err != nil {
		api.logger.Error("catalog rebuild failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, r, http.StatusUnprocessableEntity, "workbook_invalid")
		return
	}

	api.writeJSON(w, http.StatusOK, report)
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		UserKey:     user.UserKey,
		Username:    user.Username,
		Email:       user.Email,
		NodalPerson: user.NodalPerson,
		Designation: user.Designation,
		Company:     user.Company,
		Phone:       user.Phone,
		Roles:       user.Roles,
		CreatedAt:   user.CreatedAt,
	}
}

func toProcessResponse(def domain.ProcessDefinition) processResponse {
	fields := make([]processField, 0, len(def.Fields))
	for _, f := range def.Fields {
		fields = append(fields, processField{Key: f.Key, Question: f.Question, Unit: f.Unit})
	}
	return processResponse{
		ProcessCode: def.ProcessCode,
		Fields:      fields,
		Operation:   string(def.Operation),
	}
}

func toEmissionResponse(record domain.EmissionRecord) emissionResponse {
	return emissionResponse{
		RecordID:     record.ID,
		ProcessCode:  record.ProcessCode,
		ProcessDesc:  record.ProcessDesc,
		Scope:        record.Scope,
		Unit:         record.Unit,
		InputDetails: record.InputDetails,
		FactorUsed:   record.FactorUsed,
		Emission:     record.Emission,
		CreatedAt:    record.CreatedAt,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func buildAuditContext(r *http.Request, actor string) auditContext {
	return auditContext{
		Actor:      actor,
		RequestID:  r.Header.Get("X-Request-Id"),
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Path:       r.URL.Path,
	}
}

func (api *trackerAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *trackerAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
