package dbservice

import "testing"

func TestEntityClone_Independent(t *testing.T) {
	original := Entity{"id": "a1", "status": "open"}
	copied := original.Clone()

	copied["status"] = "closed"

	if original["status"] != "open" {
		t.Fatalf("expected original untouched, got %v", original["status"])
	}
}

func TestEntityClone_Nil(t *testing.T) {
	var e Entity
	if e.Clone() != nil {
		t.Fatal("expected nil clone of nil entity")
	}
}
