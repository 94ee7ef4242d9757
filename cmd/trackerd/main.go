// Command trackerd is the entrypoint that wires config, the metadata
// store, the inverted-index/word-cache layers, the crawler/watcher,
// the mail-store walkers, the extraction pipeline, and the scheduler
// into a running indexer (spec §1, §4.6), mirroring the teacher's
// single cli.App command wiring style (cmd/lci/main.go) with a new,
// much smaller flag/command surface appropriate to a headless
// indexing daemon rather than a code-search CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/classify"
	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/crawl"
	"github.com/standardbeagle/lci/internal/extract"
	"github.com/standardbeagle/lci/internal/invindex"
	"github.com/standardbeagle/lci/internal/journal"
	"github.com/standardbeagle/lci/internal/logging"
	"github.com/standardbeagle/lci/internal/mail"
	"github.com/standardbeagle/lci/internal/mount"
	"github.com/standardbeagle/lci/internal/power"
	"github.com/standardbeagle/lci/internal/scheduler"
	"github.com/standardbeagle/lci/internal/store"
	"github.com/standardbeagle/lci/internal/types"
	"github.com/standardbeagle/lci/internal/version"
	"github.com/standardbeagle/lci/internal/wordcache"
)

func main() {
	app := &cli.App{
		Name:                   "trackerd",
		Usage:                  "desktop search indexing daemon",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "directory holding tracker3.kdl",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "directory for the metadata store, journal and indexes",
				Value: defaultDataDir(),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "run a single crawl pass to completion instead of watching indefinitely",
			},
			&cli.BoolFlag{
				Name:  "nfs-lock",
				Usage: "use the NFS-safe hard-link tracker.lock protocol instead of flock(2) (spec §6, for data dirs on a network mount)",
			},
		},
		Action: runCommand,
		Commands: []*cli.Command{
			statusCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "trackerd:", err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trackerd"
	}
	return filepath.Join(home, ".cache", "trackerd")
}

// releaser is the common shape of store.NFSLock and store.LocalLock:
// whichever one openDaemon obtains, daemon.Close releases it the same way.
type releaser interface {
	Release() error
}

// daemon bundles the collaborators a run needs to hand off to the
// scheduler and to the status command.
type daemon struct {
	cfg        *config.Config
	log        *logging.Logger
	store      *store.Store
	journal    *journal.Journal
	cache      *wordcache.Cache
	fileIndex  *invindex.Manager
	emailIndex *invindex.Manager
	updateIdx  *invindex.UpdateIndex
	classifier *classify.Classifier
	pipeline   *extract.Pipeline
	gates      *scheduler.Gates
	sched      *scheduler.Scheduler
	power      *power.Monitor
	mounts     *mount.Tree
	lock       releaser
}

// openDaemon wires every collaborator rooted at dataDir. takeLock is
// false for the read-only status command, which must not contend for
// the exclusive tracker.lock a running daemon already holds.
func openDaemon(ctx context.Context, c *cli.Context, takeLock bool) (*daemon, error) {
	dataDir := c.String("data-dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}

	cfg, err := config.LoadWithRoot(c.String("config"), "")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}

	log := logging.NewConsole("trackerd")

	var lock releaser
	var nfs *store.NFSLock
	if takeLock {
		lock, nfs, err = acquireLock(dataDir, c.Bool("nfs-lock"))
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(filepath.Join(dataDir, "metadata.db"), nfs)
	if err != nil {
		if lock != nil {
			lock.Release()
		}
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	jr, err := journal.Open(filepath.Join(dataDir, "journal.db"))
	if err != nil {
		st.Close()
		if lock != nil {
			lock.Release()
		}
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	st.SetJournal(jr)

	memLimit := wordcache.DefaultMemoryLimitNormal
	if cfg.Indexing.LowDiskSpaceLimit >= 0 && cfg.Indexing.LowDiskSpaceLimit < 5 {
		memLimit = wordcache.DefaultMemoryLimitLowMemory
	}
	cache := wordcache.New(memLimit, types.IsEmailClassID)

	fileIndex, err := invindex.OpenManager(filepath.Join(dataDir, "index"), "file-index")
	if err != nil {
		return nil, fmt.Errorf("opening file index: %w", err)
	}
	emailIndex, err := invindex.OpenManager(filepath.Join(dataDir, "index"), "email-index")
	if err != nil {
		return nil, fmt.Errorf("opening email index: %w", err)
	}
	updateIdx, err := invindex.OpenUpdateIndex(filepath.Join(dataDir, "index", "update-index"))
	if err != nil {
		return nil, fmt.Errorf("opening update index: %w", err)
	}

	classifier := classify.New(classify.Roots{
		WatchRoots:       cfg.Watches.WatchDirectoryRoots,
		CrawlOnlyRoots:   cfg.Watches.CrawlDirectory,
		NoWatchGlobs:     cfg.Watches.NoWatchDirectory,
		NoIndexFileTypes: cfg.Indexing.NoIndexFileTypes,
	}, nil)

	pipeline := extract.New(extract.Config{
		Registry: extract.NewRegistry(), // no concrete extractors ship by default; spec §6 leaves extraction a black-box (path,mime)->(text,metadata) contract for miner modules to register against
		Words:    cache,
		Metadata: store.NewApplier(st),
		Resolver: propertyResolver(),
	})

	gates := scheduler.NewGates()
	gates.SetEnableIndexing(cfg.Indexing.EnableIndexing)

	pm := power.New(power.State{})
	pm.OnChange(func(s power.State) {
		gates.SetBatteryPause(s.ShouldGateIndexing(!cfg.Battery.Index))
	})

	coordinator := newStoreCoordinator(cache, fileIndex, emailIndex, updateIdx)
	metrics := scheduler.NewMetrics("trackerd")
	sched := scheduler.New(gates, coordinator, metrics, log, ctx.Done())

	return &daemon{
		cfg: cfg, log: log, store: st, journal: jr, cache: cache,
		fileIndex: fileIndex, emailIndex: emailIndex, updateIdx: updateIdx,
		classifier: classifier, pipeline: pipeline, gates: gates, sched: sched,
		power: pm, mounts: mount.New(), lock: lock,
	}, nil
}

// acquireLock obtains the tracker.lock protocol of spec §6, returning
// it as a releaser for daemon.Close, and also as the *store.NFSLock
// store.Open threads through (nil when the fast local path was used:
// Store keeps no use for it beyond that one constructor field today).
// useNFS picks tracker-nfs-lock.c's hard-link-and-check protocol for
// data directories on a network mount; the default is the flock(2)
// fast path, unreliable only on the NFS servers that protocol exists
// to work around.
func acquireLock(dataDir string, useNFS bool) (releaser, *store.NFSLock, error) {
	if useNFS {
		nfs, err := store.NewNFSLock(dataDir, true)
		if err != nil {
			return nil, nil, fmt.Errorf("nfs lock: %w", err)
		}
		if err := nfs.Obtain(); err != nil {
			return nil, nil, fmt.Errorf("acquiring nfs-safe tracker.lock: %w", err)
		}
		return nfs, nfs, nil
	}

	local := store.NewLocalLock(filepath.Join(dataDir, "tracker.lock"))
	ok, err := local.TryObtain()
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring tracker.lock: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("trackerd: another instance holds %s", filepath.Join(dataDir, "tracker.lock"))
	}
	return local, nil, nil
}

// skipForMountPolicy applies Indexing.IndexRemovableMedia against the
// mount tree, the external collaborator a platform mount-point prober
// (udisks2/gio, left unimplemented here — no pack example provides
// one) would populate via mounts.Add. With no prober wired,
// PathIsOnRemovable always reports not-available, so this is a no-op
// until one is, matching the same "external collaborator with no
// platform probe in scope" framing as power.Monitor.
func (d *daemon) skipForMountPolicy(root string) bool {
	if d.cfg.Indexing.IndexRemovableMedia {
		return false
	}
	removable, _, available := d.mounts.PathIsOnRemovable(root)
	return available && removable
}

func (d *daemon) Close() {
	d.gates.StopGraceTicker()
	d.fileIndex.Close()
	d.emailIndex.Close()
	d.updateIdx.Close()
	d.journal.Close()
	d.store.Close()
	if d.lock != nil {
		d.lock.Release()
	}
}

// isMailPath reports whether uri (optionally carrying a "#<offset>"
// mbox-message suffix) falls under one of the configured mail stores,
// the test the shared scheduler process callback uses to route a
// ticket to the mail-specific upsert path instead of the file
// classifier's (spec §6 Mail.MboxStores/MaildirStores).
func (d *daemon) isMailPath(uri string) bool {
	path := uri
	if i := strings.LastIndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	for _, root := range d.cfg.Mail.MboxStores {
		if filepath.Clean(path) == filepath.Clean(root) {
			return true
		}
	}
	for _, root := range d.cfg.Mail.MaildirStores {
		if isUnderPath(root, path) {
			return true
		}
	}
	return false
}

func isUnderPath(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// propertyResolver maps the handful of metadata property names the
// extraction pipeline produces onto the Nepomuk-style property ids and
// weights Tracker's ontology assigns them (nie:/nfo: prefixes per the
// real Tracker ontology, not a pack invention). nie:title carries a
// boosted weight: a hit in the structured title outweighs an equal
// term count in the tokenized full-text body (spec §3).
func propertyResolver() extract.PropertyResolver {
	props := map[string]types.Property{
		"nie:title":               {ID: 1, Name: "nie:title", Weight: 5},
		"nie:mimeType":            {ID: 2, Name: "nie:mimeType", Weight: 1},
		"nfo:fileSize":            {ID: 3, Name: "nfo:fileSize", Weight: 1},
		"nie:contentCreated":      {ID: 4, Name: "nie:contentCreated", Weight: 1},
		"nie:contentLastModified": {ID: 5, Name: "nie:contentLastModified", Weight: 1},
		"nie:plainTextContent":    {ID: 6, Name: "nie:plainTextContent", Weight: 1},
	}
	return func(name string) (types.Property, bool) {
		prop, ok := props[name]
		return prop, ok
	}
}

// runCommand is the default action: crawl every watch/crawl-only root
// and every configured mail store once, feeding discovered tickets
// through the extraction pipeline and the scheduler's Files/Emails
// states, then — unless --once was given — start watching the watch
// roots for further changes.
func runCommand(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := openDaemon(ctx, c, true)
	if err != nil {
		return err
	}
	defer d.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		d.log.Info(fmt.Sprintf("received %v, shutting down", sig))
		cancel()
	}()

	// The watch budget is the kernel's inotify ceiling minus the safety
	// margin; 8192 (the long-standing Linux default) stands in when the
	// ceiling cannot be read.
	watchLimit := 8192
	if raw, err := os.ReadFile("/proc/sys/fs/inotify/max_user_watches"); err == nil {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(string(raw)), "%d", &n); err == nil && n > 0 {
			watchLimit = n
		}
	}
	budget := crawl.NewWatchBudget(watchLimit - types.DefaultWatchLimitMargin)

	fileItems := make(chan types.FileInfo, 1024)
	go func() {
		defer close(fileItems)
		roots := append(append([]string{}, d.cfg.Watches.WatchDirectoryRoots...), d.cfg.Watches.CrawlDirectory...)
		for _, root := range roots {
			if d.skipForMountPolicy(root) {
				d.log.Info("skipping root under removable/mounted media policy: " + root)
				continue
			}
			if err := crawl.Crawl(root, d.classifier, budget, func(string) error { return nil }, func(fi types.FileInfo) {
				select {
				case fileItems <- fi:
				case <-ctx.Done():
				}
			}); err != nil {
				d.log.ErrorWithErr(err, "crawl root "+root)
			}
		}
	}()

	fileSource := func(ctx context.Context) (types.FileInfo, bool, error) {
		select {
		case fi, ok := <-fileItems:
			return fi, ok, nil
		case <-ctx.Done():
			return types.FileInfo{}, false, ctx.Err()
		}
	}

	process := func(fi types.FileInfo) error {
		return d.dispatch(ctx, fi)
	}

	sources := map[scheduler.State]scheduler.ItemSource{
		scheduler.StateFiles: fileSource,
	}
	if emailSource := d.startMailWalk(ctx); emailSource != nil {
		sources[scheduler.StateEmails] = emailSource
	}

	if err := d.sched.Run(ctx, sources, process); err != nil && ctx.Err() == nil {
		return err
	}

	if c.Bool("once") {
		return nil
	}

	watcher, err := crawl.NewWatcher(d.classifier, budget, func(fi types.FileInfo) {
		if err := process(fi); err != nil {
			d.log.ErrorWithErr(err, "process watch event "+fi.URI)
		}
	}, func(err error) {
		d.log.ErrorWithErr(err, "watch error")
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	for _, root := range d.cfg.Watches.WatchDirectoryRoots {
		if err := watcher.AddRecursive(root); err != nil {
			d.log.ErrorWithErr(err, "watch root "+root)
		}
	}
	watcher.Start()
	defer watcher.Stop()

	<-ctx.Done()
	return nil
}

// startMailWalk walks every configured mbox file and maildir root once
// (component G, spec §6), emitting one types.FileInfo Check ticket per
// message over the returned ItemSource. It returns nil when the emails
// module is disabled (Indexing.DisabledModules) or no mail stores are
// configured, leaving scheduler.StateEmails undrained as it was before
// this wiring.
func (d *daemon) startMailWalk(ctx context.Context) scheduler.ItemSource {
	if d.cfg.Disabled(config.ModuleEmails) {
		return nil
	}
	if len(d.cfg.Mail.MboxStores) == 0 && len(d.cfg.Mail.MaildirStores) == 0 {
		return nil
	}

	emailItems := make(chan types.FileInfo, 256)
	go func() {
		defer close(emailItems)
		emit := func(fi types.FileInfo) error {
			select {
			case emailItems <- fi:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for _, path := range d.cfg.Mail.MboxStores {
			if _, err := mail.WalkMbox(path, 0, emit); err != nil && ctx.Err() == nil {
				d.log.ErrorWithErr(err, "walking mbox store "+path)
			}
		}
		isNew := func(path string) bool {
			_, err := d.store.GetServiceByPath(path)
			return err != nil
		}
		for _, root := range d.cfg.Mail.MaildirStores {
			if err := mail.WalkMaildir(root, isNew, emit); err != nil && ctx.Err() == nil {
				d.log.ErrorWithErr(err, "walking maildir store "+root)
			}
		}
	}()

	return func(ctx context.Context) (types.FileInfo, bool, error) {
		select {
		case fi, ok := <-emailItems:
			return fi, ok, nil
		case <-ctx.Done():
			return types.FileInfo{}, false, ctx.Err()
		}
	}
}

// dispatch routes one pipeline ticket by its Action (spec §3/§8),
// replacing a single blind InsertService call with the façade
// operations each action actually implies: a Check/Create/
// DirectoryCheck/WritableFileClosed upserts (re-extracting only when
// NeedsReextraction), a Delete removes, and a paired rename or
// directory refresh moves the existing row instead of leaving a stale
// one behind.
func (d *daemon) dispatch(ctx context.Context, fi types.FileInfo) error {
	switch fi.Action {
	case types.ActionDelete:
		return d.handleDelete(fi)
	case types.ActionMovedFrom, types.ActionMovedTo, types.ActionDirectoryRefresh:
		if fi.MovedToURI == "" {
			return d.handleDelete(fi) // unpaired rename, already confirmed gone (see tickRenameGrace)
		}
		return d.handleMove(ctx, fi)
	case types.ActionIgnore:
		return nil
	default:
		return d.handleUpsert(ctx, fi)
	}
}

func (d *daemon) handleDelete(fi types.FileInfo) error {
	svc, err := d.store.GetServiceByPath(fi.URI)
	if err != nil {
		return nil // never indexed: deleting is already a no-op
	}
	return d.store.DeleteService(svc.ID)
}

// handleMove implements the §8 "rename across watched roots" scenario:
// move the existing row (and, for a directory, its descendants) rather
// than inserting a new one, leaving the journal with a single Modified
// row and no new postings. A move whose source was never indexed (a
// rename into a watched root from outside it) falls back to a normal
// upsert at the destination.
func (d *daemon) handleMove(ctx context.Context, fi types.FileInfo) error {
	var err error
	if fi.IsDirectory {
		err = d.store.MoveDirectory(fi.URI, fi.MovedToURI)
	} else {
		err = d.store.MoveService(fi.URI, fi.MovedToURI)
	}
	if err == nil {
		return nil
	}
	moved := fi
	moved.URI = fi.MovedToURI
	moved.Action = types.ActionCheck
	return d.handleUpsert(ctx, moved)
}

// handleUpsert implements the §3 path-uniqueness invariant (look up by
// path before ever inserting) and the §8 idempotent-Check invariant
// (Service.NeedsReextraction gates the pipeline call, so replaying an
// unchanged Check writes no new postings).
func (d *daemon) handleUpsert(ctx context.Context, fi types.FileInfo) error {
	class, mime := d.classOf(fi)

	svc, err := d.store.GetServiceByPath(fi.URI)
	isNew := err != nil
	if isNew {
		svc = types.Service{Path: fi.URI}
	}
	svc.Class, svc.Mime = class, mime
	svc.IsDir, svc.IsHidden = fi.IsDirectory, fi.IsHidden
	svc.Mtime = fi.Mtime
	needsExtract := svc.NeedsReextraction()

	var id types.ServiceID
	if isNew {
		if id, err = d.store.InsertService(svc); err != nil {
			return err
		}
	} else {
		id = svc.ID
		if err := d.store.UpdateService(id, func(s *types.Service) {
			s.Class, s.Mime = class, mime
			s.IsDir, s.IsHidden = fi.IsDirectory, fi.IsHidden
			s.Mtime = fi.Mtime
		}); err != nil {
			return err
		}
	}

	if !needsExtract {
		return nil
	}

	fi.ServiceID = id
	if err := d.pipeline.Process(ctx, extract.Item{
		FileInfo:    fi,
		ClassID:     types.ClassID(class),
		HasFullText: true,
		HasMetadata: true,
	}); err != nil {
		return err
	}
	return d.store.UpdateService(id, func(s *types.Service) { s.IndexTime = time.Now() })
}

func (d *daemon) classOf(fi types.FileInfo) (types.ServiceClass, string) {
	if d.isMailPath(fi.URI) {
		return types.ClassEvolutionEmails, "message/rfc822"
	}
	verdict := d.classifier.Classify(fi.URI)
	return verdict.Class, verdict.Mime
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "report index size and scheduler progress",
		Action: func(c *cli.Context) error {
			d, err := openDaemon(context.Background(), c, false)
			if err != nil {
				return err
			}
			defer d.Close()

			fileBytes, err := d.fileIndex.MainSize()
			if err != nil {
				return err
			}
			emailBytes, err := d.emailIndex.MainSize()
			if err != nil {
				return err
			}
			postings, terms := d.cache.Counts()

			fmt.Printf("file index:  %s\n", humanize.Bytes(uint64(fileBytes)))
			fmt.Printf("email index: %s\n", humanize.Bytes(uint64(emailBytes)))
			fmt.Printf("word cache:  %d postings, %d terms (%s)\n", postings, terms, humanize.Bytes(uint64(d.cache.EstimatedBytes())))
			return nil
		},
	}
}
