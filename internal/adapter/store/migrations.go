package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"ragquery/config"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and the ingest configuration hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		if versionData := b.Get(keySchemaVersion); versionData != nil {
			if err := json.Unmarshal(versionData, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		if hashData := b.Get(keyConfigHash); hashData != nil {
			info.ConfigHash = string(hashData)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// checkSchema stamps a fresh file with CurrentSchemaVersion and refuses a file
// written by a newer layout.
func (s *BoltStore) checkSchema() error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}
	switch {
	case info.Version == 0:
		info.Version = CurrentSchemaVersion
		return s.SetSchemaInfo(info)
	case info.Version > CurrentSchemaVersion:
		return fmt.Errorf("chunk store created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	}
	return nil
}

// ComputeConfigHash computes a hash of the configuration that shapes stored
// chunks. A change means previously ingested chunks no longer match what a
// fresh ingest would produce.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkTokens  int    `json:"chunk_tokens"`
		ChunkOverlap int    `json:"chunk_overlap"`
		BaseURL      string `json:"base_url"`
	}{
		ChunkTokens:  cfg.Ingest.ChunkTokens,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		BaseURL:      cfg.Ingest.BaseURL,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// NeedsRebuild reports whether chunks were ingested under a different
// configuration than cfg.
func (s *BoltStore) NeedsRebuild(cfg *config.Config) (bool, string, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return false, "", fmt.Errorf("failed to get schema info: %w", err)
	}
	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		return true, "ingest configuration changed", nil
	}
	return false, "", nil
}

// MarkIngested records the configuration the current chunks were built with.
func (s *BoltStore) MarkIngested(cfg *config.Config) error {
	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}
