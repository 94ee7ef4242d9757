package types

import "testing"

func TestAmalgamateRoundTrip(t *testing.T) {
	v := Amalgamate(42, 12345)
	class, score := SplitAmalgamated(v)
	if class != 42 || score != 12345 {
		t.Fatalf("round trip mismatch: class=%d score=%d", class, score)
	}
}

func TestAmalgamateSaturatesScore(t *testing.T) {
	v := Amalgamate(1, MaxAmalgamatedScore+1000)
	_, score := SplitAmalgamated(v)
	if score != MaxAmalgamatedScore {
		t.Fatalf("expected saturated score %d, got %d", MaxAmalgamatedScore, score)
	}
}

func TestServiceNeedsReextraction(t *testing.T) {
	s := Service{}
	if !s.NeedsReextraction() {
		t.Fatalf("zero-value timestamps should be a candidate for re-extraction")
	}
}

func TestStoreKindForClass(t *testing.T) {
	cases := map[ServiceClass]StoreKind{
		ClassFiles:       StoreFile,
		ClassDocuments:   StoreFile,
		ClassEmails:      StoreEmail,
		ClassWebHistory:  StoreVirtual,
		ClassApplications: StoreVirtual,
	}
	for class, want := range cases {
		if got := StoreKindFor(class); got != want {
			t.Errorf("StoreKindFor(%s) = %v, want %v", class, got, want)
		}
	}
}

func TestClassIDRoundTrip(t *testing.T) {
	for _, class := range []ServiceClass{
		ClassFiles, ClassFolders, ClassDocuments, ClassEmails, ClassEvolutionEmails,
		ClassWebHistory, ClassConversations, ClassGaimConversations, ClassApplications,
	} {
		id := ClassID(class)
		if id == 0 {
			t.Fatalf("ClassID(%s) returned reserved 0", class)
		}
		got, ok := ClassForID(id)
		if !ok || got != class {
			t.Fatalf("ClassForID(%d) = %s, %v; want %s, true", id, got, ok, class)
		}
	}
}

func TestClassIDUnknownIsZero(t *testing.T) {
	if id := ClassID(ServiceClass("bogus")); id != 0 {
		t.Fatalf("expected unknown class to map to 0, got %d", id)
	}
	if _, ok := ClassForID(0); ok {
		t.Fatal("expected ClassForID(0) to be not-ok")
	}
}

func TestIsEmailClassID(t *testing.T) {
	if !IsEmailClassID(ClassID(ClassEmails)) {
		t.Fatal("expected ClassEmails id to be an email class")
	}
	if !IsEmailClassID(ClassID(ClassEvolutionEmails)) {
		t.Fatal("expected ClassEvolutionEmails id to be an email class")
	}
	if IsEmailClassID(ClassID(ClassFiles)) {
		t.Fatal("did not expect ClassFiles id to be an email class")
	}
}

func TestFileActionString(t *testing.T) {
	if ActionMovedFrom.String() != "MovedFrom" {
		t.Fatalf("unexpected String(): %s", ActionMovedFrom.String())
	}
}
