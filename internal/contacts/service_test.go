package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

func TestGetEntryMiss(t *testing.T) {
	svc := NewService(&fakeCache{}, logger.New("development"))

	_, err := svc.GetEntry(context.Background(), "Acme Corp")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestGetEntryMapsDetails(t *testing.T) {
	cache := &fakeCache{entry: &Details{
		CompanyName:  "acme corp",
		PhoneNumbers: []string{"+14155550100"},
		Emails:       []string{"support@acme.example"},
		IVRMenu: &IVRMenu{
			GreetingSeconds: 8,
			Options:         map[string]string{"billing": "2"},
		},
		Source:    "static",
		FetchedAt: time.Now(),
	}}
	svc := NewService(cache, logger.New("development"))

	resp, err := svc.GetEntry(context.Background(), "Acme Corp")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if resp.CompanyName != "acme corp" {
		t.Errorf("company = %q, want the normalized key", resp.CompanyName)
	}
	if resp.IVRMenu == nil || resp.IVRMenu.Options["billing"] != "2" {
		t.Errorf("ivr menu = %+v, want the billing option", resp.IVRMenu)
	}
}

func TestUpsertEntryNormalizesAndStores(t *testing.T) {
	cache := &fakeCache{}
	svc := NewService(cache, logger.New("development"))

	resp, err := svc.UpsertEntry(context.Background(), "  Acme   CORP ", UpsertContactRequest{
		PhoneNumbers: []string{"(415) 555-0100"},
		Emails:       []string{" Support@Acme.Example "},
	})
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}
	stored := cache.lastPut
	if stored.CompanyName != "acme corp" {
		t.Errorf("stored company = %q, want the normalized key", stored.CompanyName)
	}
	if len(stored.PhoneNumbers) != 1 || stored.PhoneNumbers[0] != "+14155550100" {
		t.Errorf("stored phones = %v, want E.164", stored.PhoneNumbers)
	}
	if len(stored.Emails) != 1 || stored.Emails[0] != "support@acme.example" {
		t.Errorf("stored emails = %v, want lowercased and trimmed", stored.Emails)
	}
	if stored.Source != SourceManual {
		t.Errorf("stored source = %q, want manual", stored.Source)
	}
	if resp.PhoneNumbers[0] != "+14155550100" {
		t.Errorf("response phones = %v, want E.164", resp.PhoneNumbers)
	}
}

func TestUpsertEntryRejectsBadPhone(t *testing.T) {
	cache := &fakeCache{}
	svc := NewService(cache, logger.New("development"))

	_, err := svc.UpsertEntry(context.Background(), "Acme Corp", UpsertContactRequest{
		PhoneNumbers: []string{"call me maybe"},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if cache.puts != 0 {
		t.Error("entry stored despite a bad number")
	}
}

func TestUpsertEntryKeepsMenu(t *testing.T) {
	cache := &fakeCache{}
	svc := NewService(cache, logger.New("development"))

	_, err := svc.UpsertEntry(context.Background(), "Acme Corp", UpsertContactRequest{
		PhoneNumbers: []string{"+14155550100"},
		IVRMenu: &IVRMenuPayload{
			GreetingSeconds: 10,
			Options:         map[string]string{"billing": "2", "operator": "0"},
		},
		Source: "ops-import",
	})
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	stored := cache.lastPut
	if stored.IVRMenu == nil || stored.IVRMenu.GreetingSeconds != 10 {
		t.Fatalf("stored menu = %+v, want the submitted greeting", stored.IVRMenu)
	}
	if key, ok := stored.IVRMenu.KeyFor("billing"); !ok || key != "2" {
		t.Errorf("billing key = %q (%v), want 2", key, ok)
	}
	if stored.Source != "ops-import" {
		t.Errorf("stored source = %q, want the submitted source", stored.Source)
	}
}
