package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type documentCounter interface {
	Stats(ctx context.Context, actor Actor) (*models.DocumentStats, error)
}

type questionCounter interface {
	UnansweredCount(ctx context.Context) (int, error)
}

// NavEntry is a sidebar item with its resolved badge count.
type NavEntry struct {
	policy.NavItem
	Count *int `json:"count,omitempty"`
}

// SessionView describes what the current session may see and do.
type SessionView struct {
	Role           models.UserRole   `json:"role"`
	ActiveRole     models.UserRole   `json:"active_role"`
	CanSwitchRole  bool              `json:"can_switch_role"`
	AvailableRoles []models.UserRole `json:"available_roles"`
	Capabilities   []string          `json:"capabilities"`
	Navigation     []NavEntry        `json:"navigation"`
}

// SessionService assembles capabilities and navigation for the active role.
type SessionService struct {
	documents documentCounter
	questions questionCounter
	logger    *zap.Logger
}

// NewSessionService constructs the service. Either counter may be nil, in
// which case its badges carry no count.
func NewSessionService(documents documentCounter, questions questionCounter, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{documents: documents, questions: questions, logger: logger}
}

// View returns the session description for the authenticated claims. Badge
// counters that fail to load are left out rather than failing the request.
func (s *SessionService) View(ctx context.Context, claims *models.JWTClaims) (*SessionView, error) {
	actor, err := ActorFromClaims(claims)
	if err != nil {
		return nil, err
	}
	caps, err := policy.CapabilitiesFor(actor.Role)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "session role is no longer valid")
	}
	available, err := policy.AvailableRoles(claims.Role)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "account role is no longer valid")
	}
	items, err := policy.NavigationFor(actor.Role)
	if err != nil {
		return nil, err
	}

	counts := s.badgeCounts(ctx, actor, items)
	entries := make([]NavEntry, 0, len(items))
	for _, item := range items {
		entry := NavEntry{NavItem: item}
		if count, ok := counts[item.Badge]; ok {
			value := count
			entry.Count = &value
		}
		entries = append(entries, entry)
	}

	return &SessionView{
		Role:           claims.Role,
		ActiveRole:     actor.Role,
		CanSwitchRole:  policy.CanSwitchRole(claims.Role),
		AvailableRoles: available,
		Capabilities:   caps.Strings(),
		Navigation:     entries,
	}, nil
}

func (s *SessionService) badgeCounts(ctx context.Context, actor Actor, items []policy.NavItem) map[policy.Badge]int {
	wanted := map[policy.Badge]bool{}
	for _, item := range items {
		if item.Badge != policy.BadgeNone {
			wanted[item.Badge] = true
		}
	}

	counts := make(map[policy.Badge]int, len(wanted))
	if wanted[policy.BadgeOutstandingDocs] && s.documents != nil {
		stats, err := s.documents.Stats(ctx, actor)
		if err != nil {
			s.logger.Warn("failed to load outstanding document count", zap.String("user_id", actor.UserID), zap.Error(err))
		} else {
			counts[policy.BadgeOutstandingDocs] = stats.Missing
		}
	}
	if wanted[policy.BadgeUnansweredQuestion] && s.questions != nil {
		unanswered, err := s.questions.UnansweredCount(ctx)
		if err != nil {
			s.logger.Warn("failed to load unanswered question count", zap.Error(err))
		} else {
			counts[policy.BadgeUnansweredQuestion] = unanswered
		}
	}
	return counts
}
