package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/phone"
)

// SourceManual marks directory entries written through the ops API.
const SourceManual = "manual"

// Service is the ops surface of the contact directory: inspect the entry the
// dialer would use for a company and correct it without a deploy.
type Service struct {
	cache Cache
	log   *logger.Logger
}

func NewService(cache Cache, log *logger.Logger) *Service {
	return &Service{cache: cache, log: log}
}

// GetEntry returns the cached directory entry for a company.
func (s *Service) GetEntry(ctx context.Context, companyName string) (ContactResponse, error) {
	d, err := s.cache.Get(ctx, companyName)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ContactResponse{}, apperr.NotFound("no contact details cached for this company")
		}
		return ContactResponse{}, err
	}
	return toContactResponse(d), nil
}

// UpsertEntry validates and stores a directory entry under the normalized
// company name. Every number must be dialable; the call executor trusts this
// table without re-checking.
func (s *Service) UpsertEntry(ctx context.Context, companyName string, req UpsertContactRequest) (ContactResponse, error) {
	numbers := make([]string, 0, len(req.PhoneNumbers))
	for _, raw := range req.PhoneNumbers {
		number, err := phone.ValidateE164(raw)
		if err != nil {
			return ContactResponse{}, apperr.Wrap(apperr.KindValidation, fmt.Sprintf("phone number %q is not dialable", raw), err)
		}
		numbers = append(numbers, number)
	}

	emails := make([]string, 0, len(req.Emails))
	for _, e := range req.Emails {
		emails = append(emails, strings.ToLower(strings.TrimSpace(e)))
	}

	source := req.Source
	if source == "" {
		source = SourceManual
	}

	d := &Details{
		CompanyName:  NormalizeCompanyName(companyName),
		PhoneNumbers: numbers,
		Emails:       emails,
		IVRMenu:      fromMenuPayload(req.IVRMenu),
		Source:       source,
		FetchedAt:    time.Now(),
	}

	if err := s.cache.Put(ctx, d); err != nil {
		return ContactResponse{}, err
	}

	s.log.Info("contact directory entry updated", "company", d.CompanyName, "source", source)
	return toContactResponse(d), nil
}

func toContactResponse(d *Details) ContactResponse {
	return ContactResponse{
		CompanyName:  d.CompanyName,
		PhoneNumbers: d.PhoneNumbers,
		Emails:       d.Emails,
		IVRMenu:      toMenuPayload(d.IVRMenu),
		Source:       d.Source,
		FetchedAt:    d.FetchedAt,
	}
}

func toMenuPayload(m *IVRMenu) *IVRMenuPayload {
	if m == nil {
		return nil
	}
	return &IVRMenuPayload{GreetingSeconds: m.GreetingSeconds, Options: m.Options}
}

func fromMenuPayload(p *IVRMenuPayload) *IVRMenu {
	if p == nil {
		return nil
	}
	return &IVRMenu{GreetingSeconds: p.GreetingSeconds, Options: p.Options}
}
