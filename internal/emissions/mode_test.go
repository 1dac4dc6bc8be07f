package emissions

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("incremental"); err != nil || m != ModeIncremental {
		t.Fatalf("ParseMode(incremental) = %v, %v", m, err)
	}
	if m, err := ParseMode("replace"); err != nil || m != ModeReplace {
		t.Fatalf("ParseMode(replace) = %v, %v", m, err)
	}
	if _, err := ParseMode("upsert"); err == nil {
		t.Fatalf("ParseMode(upsert) should fail")
	}
	if _, err := ParseMode(""); err == nil {
		t.Fatalf("ParseMode(\"\") should fail")
	}
}

func TestCompanyLockKeyIsStable(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	first := companyLockKey(id)
	second := companyLockKey(id)
	if first != second {
		t.Fatalf("lock key not stable: %d vs %d", first, second)
	}

	other := companyLockKey(uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"))
	if other == first {
		t.Fatalf("distinct companies hashed to the same lock key")
	}
}
