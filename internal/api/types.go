package api

import (
	"context"

	"github.com/HankJediAssistant/hank-board/internal/domain"
)

// BoardStore holds the board document.
type BoardStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

// JobSource lists scheduled jobs. Implementations swallow their own errors.
type JobSource interface {
	Jobs(ctx context.Context) []domain.Job
}

// Notifier fans board events out to connected browsers.
type Notifier interface {
	Notify(ctx context.Context, eventType string) error
	// Clients is the number of browsers attached to this process.
	Clients() int
}

// Authenticator resolves the subject of a bearer Authorization header.
type Authenticator interface {
	SubjectFromAuthHeader(string) (string, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type familyResponse struct {
	Members []domain.FamilyMember `json:"members"`
}

type boardResponse struct {
	Columns []domain.Column `json:"columns"`
}

type boardRequest struct {
	Columns []domain.Column `json:"columns"`
}

type dashboardResponse struct {
	domain.DashboardSummary
	Family []domain.FamilyMember `json:"family"`
}

type jobsResponse struct {
	Jobs []domain.Job `json:"jobs"`
}

type refreshRequest struct {
	Type string `json:"type"`
}

type refreshResponse struct {
	OK      bool `json:"ok"`
	Clients int  `json:"clients"`
}
