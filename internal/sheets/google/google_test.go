package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"expensedash/internal/log"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	clearCredentialEnv(t)

	_, err := New(context.Background(), Config{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	clearCredentialEnv(t)

	_, err := New(context.Background(), Config{
		SpreadsheetID:   "test-id",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadCredentialsPrecedence(t *testing.T) {
	clearCredentialEnv(t)
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	b, err := loadCredentials(context.Background(), Config{}, log.Discard())
	if err != nil || string(b) != `{"from":"file"}` {
		t.Fatalf("expected ADC file, got %q err=%v", b, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"from":"env"}`)
	b, _ = loadCredentials(context.Background(), Config{}, log.Discard())
	if string(b) != `{"from":"env"}` {
		t.Fatalf("inline env should win over file, got %q", b)
	}

	b, _ = loadCredentials(context.Background(), Config{CredentialsJSON: `{"from":"config"}`}, log.Discard())
	if string(b) != `{"from":"config"}` {
		t.Fatalf("explicit config should win, got %q", b)
	}
}

func TestSheetRange(t *testing.T) {
	cases := map[string]string{
		"Expenses":    "'Expenses'!A1",
		"My Sheet":    "'My Sheet'!A1",
		"Bob's costs": "'Bob''s costs'!A1",
	}
	for sheet, want := range cases {
		if got := sheetRange(sheet, "A1"); got != want {
			t.Errorf("sheetRange(%q) = %q, want %q", sheet, got, want)
		}
	}
}

func TestToValues(t *testing.T) {
	got := toValues([]string{"id", "amount"}, [][]string{{"1", "2.50"}})
	if len(got) != 2 || got[0][0] != "id" || got[1][1] != "2.50" {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestReplaceAllWithoutService(t *testing.T) {
	c := &Client{}
	if err := c.ReplaceAll(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error when service is nil")
	}
}
