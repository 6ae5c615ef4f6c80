package certificate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adamscao/pic-certificates/internal/models"
)

// Filter selects certificates; zero fields do not constrain
type Filter struct {
	Status   models.CertificateStatus
	OwnerID  string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Offset   int
	Limit    int // 0 means no limit
}

// ListResult is one page of certificates plus the filtered total
type ListResult struct {
	Items []*models.Certificate `json:"items"`
	Total int                   `json:"total"`
}

// Statistics counts certificates by status. Expired counts every certificate
// past its expiry whatever its status, so it overlaps the other counts.
type Statistics struct {
	Total   int `json:"total"`
	Issued  int `json:"issued"`
	Draft   int `json:"draft"`
	Revoked int `json:"revoked"`
	Expired int `json:"expired"`
}

func (f Filter) matches(cert *models.Certificate) bool {
	if f.Status != "" && cert.Status != f.Status {
		return false
	}
	if f.OwnerID != "" && cert.OwnerID != f.OwnerID {
		return false
	}
	if f.DateFrom != nil && cert.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && cert.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		found := false
		for _, haystack := range []string{cert.Name, cert.Description, cert.RecipientName, cert.CertificateID} {
			if strings.Contains(strings.ToLower(haystack), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// List returns the certificates matching f, newest first
func (e *Engine) List(f Filter) (*ListResult, error) {
	all, err := e.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	matched := make([]*models.Certificate, 0, len(all))
	for _, cert := range all {
		if f.matches(cert) {
			matched = append(matched, cert)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}

	return &ListResult{Items: matched[start:end], Total: total}, nil
}

// Statistics counts certificates, restricted to ownerID when it is not empty
func (e *Engine) Statistics(ownerID string) (*Statistics, error) {
	all, err := e.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	now := e.now()
	stats := &Statistics{}
	for _, cert := range all {
		if ownerID != "" && cert.OwnerID != ownerID {
			continue
		}
		stats.Total++
		switch cert.Status {
		case models.StatusIssued:
			stats.Issued++
		case models.StatusDraft:
			stats.Draft++
		case models.StatusRevoked:
			stats.Revoked++
		}
		if cert.IsExpired(now) {
			stats.Expired++
		}
	}
	return stats, nil
}
