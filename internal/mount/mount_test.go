package mount

import (
	"testing"

	"github.com/standardbeagle/lci/internal/types"
)

func TestLookupPicksLongestPrefix(t *testing.T) {
	tr := New()
	tr.Add("udi-root", types.MountNode{MountPoint: "/media"})
	tr.Add("udi-usb", types.MountNode{MountPoint: "/media/usb0", Removable: true})

	removable, mp, ok := tr.PathIsOnRemovable("/media/usb0/photos/a.jpg")
	if !ok || !removable || mp != "/media/usb0" {
		t.Fatalf("expected longest-prefix match on /media/usb0, got removable=%v mp=%q ok=%v", removable, mp, ok)
	}

	removable2, mp2, ok2 := tr.PathIsOnRemovable("/media/other/file.txt")
	if !ok2 || removable2 || mp2 != "/media" {
		t.Fatalf("expected fallback to /media, got removable=%v mp=%q ok=%v", removable2, mp2, ok2)
	}
}

func TestAddAndRemoveFireChangeCallback(t *testing.T) {
	tr := New()
	var events []Event
	tr.OnChange(func(e Event) { events = append(events, e) })

	tr.Add("udi-1", types.MountNode{MountPoint: "/mnt/a"})
	tr.Remove("/mnt/a")

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].Added || events[1].Added {
		t.Fatalf("expected add then remove, got %+v", events)
	}
}

func TestRemoveUnknownPathDoesNotFireCallback(t *testing.T) {
	tr := New()
	var calls int
	tr.OnChange(func(Event) { calls++ })
	tr.Remove("/nope")
	if calls != 0 {
		t.Fatalf("expected no callback for removing an unknown mount point, got %d", calls)
	}
}

func TestListMountedAndRemovableRoots(t *testing.T) {
	tr := New()
	tr.Add("udi-1", types.MountNode{MountPoint: "/a", Removable: false})
	tr.Add("udi-2", types.MountNode{MountPoint: "/b", Removable: true})

	if got := len(tr.ListMountedRoots()); got != 2 {
		t.Fatalf("expected 2 mounted roots, got %d", got)
	}
	removable := tr.ListRemovableRoots()
	if len(removable) != 1 || removable[0] != "/b" {
		t.Fatalf("expected only /b to be removable, got %v", removable)
	}
}

func TestVolumeUDIFor(t *testing.T) {
	tr := New()
	tr.Add("udi-x", types.MountNode{MountPoint: "/mnt/x"})
	udi, ok := tr.VolumeUDIFor("/mnt/x/sub/file")
	if !ok || udi != "udi-x" {
		t.Fatalf("expected udi-x, got %q ok=%v", udi, ok)
	}
	if _, ok := tr.VolumeUDIFor("/unrelated"); ok {
		t.Fatal("expected no match for an unrelated path")
	}
}
