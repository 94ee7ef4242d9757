// Package types holds the shared data model of Tracker's indexing core:
// services, classes, properties, postings, pipeline tickets, mount
// points and journal rows (spec §3).
package types

import (
	"fmt"
	"time"
)

// ServiceID uniquely identifies one indexed entity (file, directory,
// email, conversation line, application, web-history record).
type ServiceID uint64

// Common system-wide constants.
const (
	// DefaultMaxFileSize bounds the size of a single file considered for
	// extraction. Rationale: prevents memory exhaustion from huge
	// generated files while covering the overwhelming majority of
	// user documents; oversized files still get a service row with
	// basic metadata, just no full-text extraction (spec §7).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultWatchLimitMargin is subtracted from the OS inotify watch
	// ceiling before Tracker stops adding new watches (spec §4.5).
	DefaultWatchLimitMargin = 500

	// MaxAmalgamatedScore is the largest score representable in the
	// low 24 bits of an amalgamated WordDetails field (spec §9).
	MaxAmalgamatedScore = 0xFFFFFF

	// MaxAmalgamatedClass is the largest class id representable in the
	// high 8 bits of an amalgamated WordDetails field (spec §9).
	MaxAmalgamatedClass = 0xFF
)

// ServiceClass names a node in the single-inheritance class hierarchy
// rooted at Files/Emails/WebHistory/Conversations/Applications/...
type ServiceClass string

const (
	ClassFiles              ServiceClass = "Files"
	ClassFolders            ServiceClass = "Folders"
	ClassDocuments          ServiceClass = "Documents"
	ClassEmails             ServiceClass = "Emails"
	ClassEvolutionEmails    ServiceClass = "EvolutionEmails"
	ClassWebHistory         ServiceClass = "WebHistory"
	ClassConversations      ServiceClass = "Conversations"
	ClassGaimConversations  ServiceClass = "GaimConversations"
	ClassApplications       ServiceClass = "Applications"
)

// Service is an indexable entity: unique id, parent-service id (0 for
// roots), absolute path/URI, class tag, mime, timestamps, and flags.
type Service struct {
	ID         ServiceID
	ParentID   ServiceID // 0 for roots
	Path       string
	Class      ServiceClass
	Mime       string
	Mtime      time.Time
	IndexTime  time.Time
	IsDir      bool
	IsHidden   bool
	Enabled    bool
}

// NeedsReextraction implements the invariant
// "indextime <= mtime => candidate for re-extraction" (spec §3).
func (s Service) NeedsReextraction() bool {
	return !s.IndexTime.After(s.Mtime)
}

// StoreKind names the backing store a service's class maps to. The
// store is chosen once at insert time and is immutable thereafter.
type StoreKind int

const (
	StoreFile StoreKind = iota
	StoreEmail
	StoreVirtual
)

// StoreKindFor returns the immutable backing store for a class.
func StoreKindFor(class ServiceClass) StoreKind {
	switch class {
	case ClassEmails, ClassEvolutionEmails:
		return StoreEmail
	case ClassWebHistory, ClassConversations, ClassGaimConversations, ClassApplications:
		return StoreVirtual
	default:
		return StoreFile
	}
}

// classIDs assigns each ServiceClass a small integer id, in declared
// order, for the amalgamated word-index postings (WordDetails) where a
// full string class name would waste space. 0 is reserved for
// "unknown" so a zero-valued classID is never mistaken for Files.
var classIDs = map[ServiceClass]uint8{
	ClassFiles:             1,
	ClassFolders:           2,
	ClassDocuments:         3,
	ClassEmails:            4,
	ClassEvolutionEmails:   5,
	ClassWebHistory:        6,
	ClassConversations:     7,
	ClassGaimConversations: 8,
	ClassApplications:      9,
}

var classIDNames = func() map[uint8]ServiceClass {
	m := make(map[uint8]ServiceClass, len(classIDs))
	for class, id := range classIDs {
		m[id] = class
	}
	return m
}()

// ClassID maps a ServiceClass to its small integer id, for use in
// wordcache postings and extraction items. Returns 0 for a class not
// in the registry.
func ClassID(class ServiceClass) uint8 {
	return classIDs[class]
}

// ClassForID reverses ClassID, returning ok=false for an unknown id.
func ClassForID(id uint8) (ServiceClass, bool) {
	class, ok := classIDNames[id]
	return class, ok
}

// IsEmailClassID reports whether id identifies one of the email
// classes, matching the predicate shape wordcache.New expects.
func IsEmailClassID(id uint8) bool {
	class, ok := ClassForID(id)
	if !ok {
		return false
	}
	return class == ClassEmails || class == ClassEvolutionEmails
}

// Class is a named node in the single-inheritance hierarchy (spec §3).
type Class struct {
	Name          ServiceClass
	Parent        ServiceClass // empty for root
	HasMetadata   bool
	HasFullText   bool
	HasThumbs     bool
	ShowFiles     bool
	ShowDirs      bool
	Enabled       bool
	Embedded      bool
	PropertyPrefix string
	ContentFields []string
}

// PropertyDataType enumerates the typed attribute kinds of spec §3.
type PropertyDataType int

const (
	PropKeyword PropertyDataType = iota
	PropIndex
	PropFullText
	PropString
	PropInteger
	PropDouble
	PropDate
	PropBlob
	PropStruct
	PropLink
)

// Property is a named typed attribute (spec §3).
type Property struct {
	ID             uint32
	Name           string
	DataType       PropertyDataType
	Weight         float64
	Embedded       bool
	MultipleValues bool
	Delimited      bool
	Filtered       bool
	StoreMetadata  bool
	Children       []uint32 // child property ids for composite properties
}

// WordDetails is a single (term, service) occurrence posting: a 32-bit
// service id plus a 32-bit amalgamated (class_id, score) field (spec §3).
type WordDetails struct {
	ServiceID  uint32
	Amalgamated uint32
}

// Amalgamate packs a class id and a term-frequency score into the
// 32-bit layout documented in spec §9: class_id<<24 | (score & 0xFFFFFF),
// saturating the score rather than overflowing into the class bits.
func Amalgamate(classID uint8, score uint32) uint32 {
	if score > MaxAmalgamatedScore {
		score = MaxAmalgamatedScore
	}
	return uint32(classID)<<24 | (score & MaxAmalgamatedScore)
}

// SplitAmalgamated reverses Amalgamate.
func SplitAmalgamated(v uint32) (classID uint8, score uint32) {
	return uint8(v >> 24), v & MaxAmalgamatedScore
}

// FileAction enumerates the pipeline ticket actions of spec §3.
type FileAction int

const (
	ActionCheck FileAction = iota
	ActionCreate
	ActionDelete
	ActionMovedFrom
	ActionMovedTo
	ActionDirectoryCheck
	ActionDirectoryRefresh
	ActionWritableFileClosed
	ActionIgnore
)

func (a FileAction) String() string {
	switch a {
	case ActionCheck:
		return "Check"
	case ActionCreate:
		return "Create"
	case ActionDelete:
		return "Delete"
	case ActionMovedFrom:
		return "MovedFrom"
	case ActionMovedTo:
		return "MovedTo"
	case ActionDirectoryCheck:
		return "DirectoryCheck"
	case ActionDirectoryRefresh:
		return "DirectoryRefresh"
	case ActionWritableFileClosed:
		return "WritableFileClosed"
	case ActionIgnore:
		return "Ignore"
	default:
		return fmt.Sprintf("FileAction(%d)", int(a))
	}
}

// FileInfo is the pipeline ticket of spec §3: created by the crawler or
// watcher, mutated only by the extraction pipeline, dropped at success
// or once Counter goes negative.
type FileInfo struct {
	URI         string
	Action      FileAction
	Counter     int // retry/grace countdown
	ServiceID   ServiceID
	Mime        string
	Mtime       time.Time
	IndexTime   time.Time
	IsDirectory bool
	IsHidden    bool
	Cookie      int32  // rename pairing key shared by MovedFrom/MovedTo
	MovedToURI  string
	Offset      int64 // byte offset into a mail summary file, for resumable reads
}

// JournalEventKind enumerates the row-level deltas of spec §4.8.
type JournalEventKind int

const (
	EventAdded JournalEventKind = iota
	EventRemoved
	EventModified
)

func (k JournalEventKind) String() string {
	switch k {
	case EventAdded:
		return "Added"
	case EventRemoved:
		return "Removed"
	case EventModified:
		return "Modified"
	default:
		return fmt.Sprintf("JournalEventKind(%d)", int(k))
	}
}

// JournalRow is one persisted, consumed-then-purged event-journal entry.
type JournalRow struct {
	Seq       uint64
	ServiceID ServiceID
	Kind      JournalEventKind
}

// MountNode is one node of the MountPoint tree (spec §3), keyed by
// mount path with longest-prefix lookup semantics.
type MountNode struct {
	MountPoint string
	DeviceID   string
	Removable  bool
}
