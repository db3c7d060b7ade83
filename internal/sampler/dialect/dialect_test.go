package dialect

import (
	"strings"
	"testing"
)

func TestResolveExactMatch(t *testing.T) {
	d, err := Resolve("PostgreSQL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name() != "PostgreSQL" {
		t.Errorf("expected PostgreSQL, got %s", d.Name())
	}
}

func TestResolveSubstringMatch(t *testing.T) {
	d, err := Resolve("PostgreSQL 15.2 on x86_64-pc-linux-gnu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name() != "PostgreSQL" {
		t.Errorf("expected a substring match to resolve to PostgreSQL, got %s", d.Name())
	}
}

func TestResolveUnknownProductReturnsError(t *testing.T) {
	if _, err := Resolve("DB2"); err == nil {
		t.Error("expected an error for an unrecognized product name")
	}
}

func TestRegisteredListsAllFourDialects(t *testing.T) {
	names := Registered()
	if len(names) != 4 {
		t.Fatalf("expected 4 registered dialects, got %d: %v", len(names), names)
	}
}

func TestQuoteTableSegmentsQuotesEachSegmentIndependently(t *testing.T) {
	d, _ := Resolve("PostgreSQL")
	got := quoteTableSegments(d, "public.users")
	want := `"public"."users"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQuoteTableSegmentsSingleSegment(t *testing.T) {
	d, _ := Resolve("MySQL")
	got := quoteTableSegments(d, "users")
	want := "`users`"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMySQLBuildSamplingQueryUsesRand(t *testing.T) {
	d, _ := Resolve("MySQL")
	q := d.BuildSamplingQuery("users", "email", 100)
	if !strings.Contains(q, "ORDER BY RAND()") || !strings.Contains(q, "LIMIT 100") {
		t.Errorf("unexpected MySQL sampling query: %s", q)
	}
}

func TestPostgresBuildSamplingQueryUsesRandom(t *testing.T) {
	d, _ := Resolve("PostgreSQL")
	q := d.BuildSamplingQuery("users", "email", 50)
	if !strings.Contains(q, "ORDER BY RANDOM()") || !strings.Contains(q, "LIMIT 50") {
		t.Errorf("unexpected PostgreSQL sampling query: %s", q)
	}
}

func TestOracleBuildSamplingQueryUsesRownum(t *testing.T) {
	d, _ := Resolve("Oracle")
	q := d.BuildSamplingQuery("USERS", "EMAIL", 25)
	if !strings.Contains(q, "dbms_random.value") || !strings.Contains(q, "rownum <= 25") {
		t.Errorf("unexpected Oracle sampling query: %s", q)
	}
}

func TestSQLServerBuildSamplingQueryUsesTopAndNewID(t *testing.T) {
	d, _ := Resolve("Microsoft SQL Server")
	q := d.BuildSamplingQuery("users", "email", 10)
	if !strings.Contains(q, "TOP (10)") || !strings.Contains(q, "ORDER BY NEWID()") {
		t.Errorf("unexpected SQL Server sampling query: %s", q)
	}
}

func TestEscapeQuoteDoublesEmbeddedQuoteCharacter(t *testing.T) {
	got := escapeQuote(`weird"name`, '"')
	want := `weird""name`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQualifiedTableNameWithAndWithoutSchema(t *testing.T) {
	d, _ := Resolve("PostgreSQL")
	if got := QualifiedTableName(d, "", "users"); got != `"users"` {
		t.Errorf("got %q", got)
	}
	if got := QualifiedTableName(d, "public", "users"); got != `"public"."users"` {
		t.Errorf("got %q", got)
	}
}
