package policy

import "github.com/noah-isme/ctos-api/internal/models"

// Badge names a counter the presentation layer shows next to a nav item.
type Badge string

const (
	BadgeNone               Badge = ""
	BadgeOutstandingDocs    Badge = "outstanding_documents"
	BadgeUnansweredQuestion Badge = "unanswered_questions"
)

// NavItem is an entry of the application sidebar.
type NavItem struct {
	Key        string     `json:"key"`
	Title      string     `json:"title"`
	Href       string     `json:"href"`
	Icon       string     `json:"icon"`
	Capability Capability `json:"capability,omitempty"`
	Badge      Badge      `json:"badge,omitempty"`
}

var navigation = []NavItem{
	{Key: "dashboard", Title: "Dashboard", Href: "/app", Icon: "home"},
	{Key: "documents", Title: "Documents", Href: "/app/documents", Icon: "file-text", Capability: CapViewDocuments, Badge: BadgeOutstandingDocs},
	{Key: "missing", Title: "Missing Docs", Href: "/app/documents/missing", Icon: "alert-triangle", Capability: CapViewDocuments, Badge: BadgeOutstandingDocs},
	{Key: "sites", Title: "Sites", Href: "/app/sites", Icon: "building", Capability: CapViewSitesOverview},
	{Key: "reports", Title: "Reports", Href: "/app/reports", Icon: "bar-chart", Capability: CapViewReports},
	{Key: "community", Title: "Community", Href: "/app/community", Icon: "message-square", Badge: BadgeUnansweredQuestion},
	{Key: "knowledge-base", Title: "Knowledge Base", Href: "/app/knowledge-base", Icon: "book-open"},
	{Key: "admin", Title: "Admin", Href: "/app/admin", Icon: "settings", Capability: CapManageAdmin},
}

// NavigationFor returns the sidebar entries visible to role, in display order.
// Items without a capability are shown to everyone.
func NavigationFor(role models.UserRole) ([]NavItem, error) {
	caps, err := CapabilitiesFor(role)
	if err != nil {
		return nil, err
	}
	items := make([]NavItem, 0, len(navigation))
	for _, item := range navigation {
		if item.Capability != "" && !caps.Has(item.Capability) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
