package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/nucleus/migrate-core/internal/core"
	"github.com/nucleus/migrate-core/internal/objstore"
)

// Store persists ledgers as JSONL objects named
// {prefix}/{job}/{name}-ledger-{unixnano}.jsonl. JSONL is the canonical
// round-trip format; a Parquet artifact is written alongside when the
// ledger declares a schema.
type Store struct {
	store  objstore.ObjectStore
	bucket string
	prefix string
}

// NewStore creates a ledger store over the given object store.
func NewStore(store objstore.ObjectStore, bucket, prefix string) *Store {
	return &Store{store: store, bucket: bucket, prefix: prefix}
}

// NewStoreFromEnv builds a ledger store using MINIO_* settings, or a local
// store rooted at MIGRATE_LEDGER_ROOT for dev and tests.
func NewStoreFromEnv() (*Store, error) {
	bucket := getenv("MIGRATE_LEDGER_BUCKET", "migrate-ledgers")
	prefix := getenv("MIGRATE_LEDGER_PREFIX", "ledgers")

	if cfg := objstore.S3ConfigFromEnv(); cfg != nil {
		client, err := objstore.NewS3Store(cfg)
		if err != nil {
			return nil, err
		}
		return NewStore(client, bucket, prefix), nil
	}
	return NewStore(objstore.NewLocalStore(os.Getenv("MIGRATE_LEDGER_ROOT")), bucket, prefix), nil
}

// Persist writes the ledger under the given job and returns the object key.
// Empty ledgers are not persisted.
func (s *Store) Persist(ctx context.Context, job string, l *Ledger) (string, error) {
	if l.Empty() {
		return "", nil
	}
	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return "", err
	}

	ts := time.Now().UnixNano()
	var buf bytes.Buffer
	for _, entry := range l.Entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return "", core.WrapError(core.CodeLedgerWriteFailed, false, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := s.key(job, fmt.Sprintf("%s-ledger-%d.jsonl", l.Name, ts))
	if err := s.store.PutObject(ctx, s.bucket, key, buf.Bytes()); err != nil {
		return "", err
	}

	if l.Schema != nil && len(l.Schema.Fields) > 0 {
		pqKey := s.key(job, fmt.Sprintf("%s-ledger-%d.parquet", l.Name, ts))
		if err := s.writeParquet(ctx, pqKey, l); err != nil {
			// Typed artifact is best-effort; JSONL remains authoritative.
			log.Printf("ledger=%s parquet artifact failed, keeping jsonl: %v", l.Name, err)
		}
	}
	return key, nil
}

// Latest loads the most recently persisted ledger with the given name under
// the given job, selecting by the timestamp embedded in the file name.
// Returns ErrNotFound when no matching file exists.
func (s *Store) Latest(ctx context.Context, job, name string) (*Ledger, error) {
	keys, err := s.store.ListPrefix(ctx, s.bucket, s.key(job, ""))
	if err != nil {
		var coded core.CodedError
		if errors.As(err, &coded) && coded.CodeValue() == core.CodeBucketNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	wantPrefix := name + "-ledger-"
	var bestKey string
	var bestTS int64
	for _, key := range keys {
		base := path.Base(key)
		if !strings.HasPrefix(base, wantPrefix) || !strings.HasSuffix(base, ".jsonl") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(base, wantPrefix), ".jsonl")
		ts, parseErr := strconv.ParseInt(tsStr, 10, 64)
		if parseErr != nil {
			continue
		}
		if ts > bestTS {
			bestTS = ts
			bestKey = key
		}
	}
	if bestKey == "" {
		return nil, ErrNotFound
	}
	return s.load(ctx, bestKey, name)
}

func (s *Store) load(ctx context.Context, key, name string) (*Ledger, error) {
	data, err := s.store.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}
	l := New(name)
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		entry := Entry{}
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("decode ledger %s: %w", key, err)
		}
		l.Append(entry)
	}
	return l, nil
}

func (s *Store) key(job, file string) string {
	return objstore.JoinPath(s.prefix, job, file)
}

// writeParquet writes the ledger as a single Parquet object using the
// declared schema, snappy-compressed.
func (s *Store) writeParquet(ctx context.Context, key string, l *Ledger) error {
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(parquetSchema(l.Schema), pfw, 4)
	if err != nil {
		return core.WrapError(core.CodeLedgerWriteFailed, true, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, entry := range l.Entries {
		row := make(map[string]any, len(l.Schema.Fields))
		for _, f := range l.Schema.Fields {
			row[f.Name] = entry[f.Name]
		}
		// The JSON writer consumes one JSON document per record.
		line, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return core.WrapError(core.CodeLedgerWriteFailed, false, err)
		}
		if err := pw.Write(string(line)); err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return core.WrapError(core.CodeLedgerWriteFailed, true, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return core.WrapError(core.CodeLedgerWriteFailed, true, err)
	}
	_ = pfw.Close()

	return s.store.PutObject(ctx, s.bucket, key, buf.Bytes())
}

func parquetSchema(schema *Schema) string {
	fields := make([]map[string]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", f.Name, parquetPhysicalType(f.DataType)),
		})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func parquetPhysicalType(dataType string) string {
	switch strings.ToUpper(dataType) {
	case "BOOLEAN":
		return "BOOLEAN"
	case "INTEGER", "INT", "BIGINT":
		return "INT64"
	case "FLOAT", "DOUBLE", "NUMBER", "NUMERIC", "DECIMAL":
		return "DOUBLE"
	default:
		return "BYTE_ARRAY"
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
