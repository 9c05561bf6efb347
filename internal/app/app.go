package app

import (
	"fmt"
	"os"
	"time"

	"aurum/internal/audit"
	"aurum/internal/backup"
	"aurum/internal/catalog"
	"aurum/internal/config"
	"aurum/internal/encryption"
	"aurum/internal/inventory"
	"aurum/internal/store"
	"aurum/internal/vault"
)

// App is the application layer between the CLI and the domain services.
// It constructs all dependencies from config, exposes high-level
// operations that accept raw strings, and manages the store lifecycle on
// Close.
type App struct {
	cfg       *config.Config
	store     *store.Store
	catalog   *catalog.FileCatalog
	encryptor backup.Encryptor
	service   *backup.Service
	scheduler *backup.Scheduler
	recorder  *audit.Recorder
	manager   *inventory.Manager
	op        *Operation
	logger    *slogAdapter
	logFile   *os.File
}

// New creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "backup.create", "restore");
// actorID may be empty, defaulting to the OS user. The caller must call
// Close when done.
func New(cfg *config.Config, operation, actorID string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := st.CheckMigrations(); err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("store schema out of date: %w", err)
	}

	cat, err := catalog.NewFileCatalog(cfg.Backup.Dir)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating snapshot catalog: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	vlt, err := buildVault(cfg.Vaults)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	var notifier backup.Notifier = backup.NopNotifier{}
	if cfg.Backup.WebhookURL != "" {
		notifier = backup.NewWebhookNotifier(cfg.Backup.WebhookURL, logger)
	}

	svc := backup.NewService(cfg.Database.Path, cfg.Backup.Dir, cat,
		store.NewSQLiteVerifier(), enc, vlt, notifier, logger, backup.RealClock{})

	sched := backup.NewScheduler(svc, svc, backup.SchedulerConfig{
		Interval:      cfg.Backup.Interval,
		RetryDelay:    cfg.Backup.RetryDelay,
		PruneInterval: cfg.Backup.PruneInterval,
		MaxBackups:    cfg.Backup.MaxBackups,
	}, logger)

	a := &App{
		cfg:       cfg,
		catalog:   cat,
		encryptor: enc,
		service:   svc,
		scheduler: sched,
		op:        NewOperation(operation, actorID),
		logger:    logger,
		logFile:   logFile,
	}
	a.rewire(st)
	return a, nil
}

// buildVault combines the configured replication targets. No vaults means
// no replication.
func buildVault(cfgs []config.VaultConfig) (backup.Vault, error) {
	switch len(cfgs) {
	case 0:
		return nil, nil
	case 1:
		return vault.NewVaultFromConfig(cfgs[0])
	}

	vaults := make([]backup.Vault, 0, len(cfgs))
	for _, vc := range cfgs {
		v, err := vault.NewVaultFromConfig(vc)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, v)
	}
	return vault.NewMultiVault(vaults...), nil
}

// rewire points the store-backed services at st. Used at construction and
// again after a restore replaces the live database.
func (a *App) rewire(st *store.Store) {
	a.store = st
	a.recorder = audit.NewRecorder(st, a.logger, audit.SystemClock{})
	a.manager = inventory.NewManager(st, a.recorder, a.logger, inventory.SystemClock{}, inventory.UUIDGenerator{})
}

// Scheduler returns the backup scheduler for daemon mode.
func (a *App) Scheduler() *backup.Scheduler { return a.scheduler }

// Inventory returns the soft-delete lifecycle manager.
func (a *App) Inventory() *inventory.Manager { return a.manager }

// Audit returns the audit trail recorder.
func (a *App) Audit() *audit.Recorder { return a.recorder }

// Operation returns the current CLI operation identity.
func (a *App) Operation() *Operation { return a.op }

// CreateBackup takes a backup of the named kind and records it in the
// audit trail.
func (a *App) CreateBackup(kindName string) (*backup.Artifact, error) {
	kind, err := backup.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	artifact, err := a.service.CreateBackup(kind)
	if err != nil {
		return nil, err
	}
	a.recorder.Record("backups", artifact.Filename, audit.ActionCreate,
		nil, artifact, a.op.ActorID, a.op.ReqCtx)
	return artifact, nil
}

// ListArtifacts returns all cataloged snapshots, oldest first.
func (a *App) ListArtifacts() ([]*backup.Artifact, error) {
	return a.service.ListArtifacts()
}

// Stats summarizes the snapshot store.
func (a *App) Stats() (*backup.Stats, error) {
	return a.service.Stats()
}

// Prune applies the configured retention window and returns the number of
// snapshots deleted.
func (a *App) Prune() (int, error) {
	return a.service.Prune(a.cfg.Backup.MaxBackups)
}

// VerifyArtifact verifies a single snapshot. passphrase is needed only
// when the artifact is sealed.
func (a *App) VerifyArtifact(filename, passphrase string) error {
	unlock, err := a.unlockIfNeeded(filename, passphrase)
	if err != nil {
		return err
	}
	return a.service.VerifyArtifact(filename, unlock)
}

// VerifyAll verifies every cataloged snapshot and triggers a corrective
// backup when corruption is found.
func (a *App) VerifyAll(passphrase string) (*backup.VerifyReport, error) {
	unlock, err := a.unlockAny(passphrase)
	if err != nil {
		return nil, err
	}
	return a.service.VerifyAll(unlock)
}

// Restore replaces the live database with the named snapshot. The store
// connection is closed for the swap and reopened against the restored
// file afterwards, whether the restore verified or rolled back.
func (a *App) Restore(filename, confirmationToken, passphrase string) (*backup.RestoreResult, error) {
	unlock, err := a.unlockIfNeeded(filename, passphrase)
	if err != nil {
		return nil, err
	}

	if err := a.store.Close(); err != nil {
		return nil, fmt.Errorf("closing store before restore: %w", err)
	}

	result, restoreErr := a.service.Restore(filename, confirmationToken, unlock)

	st, openErr := store.Open(a.cfg.Database.Path)
	if openErr != nil {
		if restoreErr != nil {
			return result, restoreErr
		}
		return result, fmt.Errorf("reopening store after restore: %w", openErr)
	}
	a.rewire(st)

	if restoreErr != nil {
		return result, restoreErr
	}

	a.recorder.Record("backups", filename, audit.ActionRestore,
		nil, result, a.op.ActorID, a.op.ReqCtx)
	return result, nil
}

// SealingConfigured reports whether an encryptor is configured and has
// keys on disk.
func (a *App) SealingConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// SetupKeys performs one-time key generation for artifact sealing.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	return a.encryptor.Setup(passphrase)
}

// unlockIfNeeded unlocks the private key when the named artifact is
// sealed. Returns nil when no unlock is required.
func (a *App) unlockIfNeeded(filename, passphrase string) (backup.DecryptionContext, error) {
	artifact, err := a.catalog.Get(filename)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, backup.ErrArtifactNotFound
	}
	if !artifact.Sealed {
		return nil, nil
	}
	return a.unlock(passphrase)
}

// unlockAny unlocks the private key if any cataloged artifact is sealed.
func (a *App) unlockAny(passphrase string) (backup.DecryptionContext, error) {
	artifacts, err := a.catalog.List()
	if err != nil {
		return nil, err
	}
	for _, artifact := range artifacts {
		if artifact.Sealed {
			return a.unlock(passphrase)
		}
	}
	return nil, nil
}

func (a *App) unlock(passphrase string) (backup.DecryptionContext, error) {
	if a.encryptor == nil {
		return nil, fmt.Errorf("artifact is sealed but encryption is disabled in config")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("artifact is sealed: a passphrase is required")
	}
	unlock, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	return unlock, nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
