package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"simcore/internal/blob"
	"simcore/pkg/model"
	"simcore/pkg/query"
)

// Clock abstracts wall-clock access so tests can freeze time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the minimal structured logging surface the service emits to.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service exposes higher-level document operations over a DataStore and
// an optional blob store for artifact payloads.
type Service struct {
	store   DataStore
	loader  *RecordLoader
	blobs   blob.Store
	metrics MetricsRecorder
	log     Logger
	clock   Clock
}

// Option configures a Service.
type Option func(*Service)

// WithLoader overrides the record loader used when parsing documents.
func WithLoader(loader *RecordLoader) Option {
	return func(s *Service) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides wall-clock access.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithBlobStore attaches a blob store for record file payloads.
func WithBlobStore(bs blob.Store) Option {
	return func(s *Service) {
		if bs != nil {
			s.blobs = bs
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store DataStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		loader: model.DefaultLoader(),
		log:    noopLogger{},
		clock:  ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() DataStore { return s.store }

// Loader returns the record loader used when parsing documents.
func (s *Service) Loader() *RecordLoader { return s.loader }

func (s *Service) observe(ctx context.Context, op string, started time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(started))
	}
	if err != nil {
		s.log.Error(op+" failed", "error", err)
	}
}

// Ingest stores every record and relationship in the document, assigning
// global identifiers to local ones first. It returns the local-to-global
// mapping applied.
func (s *Service) Ingest(ctx context.Context, doc *Document) (map[string]string, error) {
	started := s.clock.Now()
	assigned, err := s.store.IngestDocument(ctx, doc)
	s.observe(ctx, "ingest", started, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("document ingested", "records", len(doc.Records()), "relationships", len(doc.Relationships()), "assigned", len(assigned))
	return assigned, nil
}

// IngestFile parses the JSON document at path and ingests it.
func (s *Service) IngestFile(ctx context.Context, path string) (map[string]string, error) {
	doc, err := model.LoadDocument(path, s.loader)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s.Ingest(ctx, doc)
}

// GetRecord fetches one record by its global identifier.
func (s *Service) GetRecord(ctx context.Context, id string) (Record, error) {
	started := s.clock.Now()
	rec, err := s.store.GetRecord(ctx, id)
	s.observe(ctx, "get_record", started, err)
	return rec, err
}

// RecordsOfType returns all records with the given type tag.
func (s *Service) RecordsOfType(ctx context.Context, recordType string) ([]Record, error) {
	started := s.clock.Now()
	recs, err := s.store.RecordsOfType(ctx, recordType)
	s.observe(ctx, "records_of_type", started, err)
	return recs, err
}

// RecordsWithFileURI returns ids of records referencing the given file
// URI. A trailing "%" acts as a prefix wildcard.
func (s *Service) RecordsWithFileURI(ctx context.Context, uri string) ([]string, error) {
	started := s.clock.Now()
	ids, err := s.store.RecordsWithFileURI(ctx, uri)
	s.observe(ctx, "records_with_file_uri", started, err)
	return ids, err
}

// FindRecords returns ids of records whose data satisfies every
// criterion.
func (s *Service) FindRecords(ctx context.Context, criteria []query.Criterion) ([]string, error) {
	started := s.clock.Now()
	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			s.observe(ctx, "find_records", started, err)
			return nil, err
		}
	}
	ids, err := s.store.RecordsMatching(ctx, criteria)
	s.observe(ctx, "find_records", started, err)
	return ids, err
}

// FindRecordsByExpr parses a criteria expression such as
// "final_volume=[10,20) source=experiment" and runs FindRecords.
func (s *Service) FindRecordsByExpr(ctx context.Context, expr string) ([]string, error) {
	criteria, err := query.ParseDataString(expr)
	if err != nil {
		return nil, err
	}
	return s.FindRecords(ctx, criteria)
}

// Relationships returns stored relationships filtered by the non-empty
// arguments.
func (s *Service) Relationships(ctx context.Context, subject, predicate, object string) ([]Relationship, error) {
	started := s.clock.Now()
	rels, err := s.store.Relationships(ctx, subject, predicate, object)
	s.observe(ctx, "relationships", started, err)
	return rels, err
}

// Export assembles a document holding the named records plus every
// relationship touching them.
func (s *Service) Export(ctx context.Context, ids []string) (*Document, error) {
	started := s.clock.Now()
	doc, err := s.store.ExportDocument(ctx, ids)
	s.observe(ctx, "export", started, err)
	return doc, err
}

// ExportFile exports the named records as a JSON document at path.
func (s *Service) ExportFile(ctx context.Context, ids []string, path string) error {
	doc, err := s.Export(ctx, ids)
	if err != nil {
		return err
	}
	return model.SaveDocument(doc, path)
}

// AttachFile stores an artifact payload for an existing record and
// returns the blob info; the caller records the returned URI in the
// record's file list. Keys are "recordID/filename".
func (s *Service) AttachFile(ctx context.Context, recordID, filename string, r io.Reader, contentType string) (blob.Info, error) {
	if s.blobs == nil {
		return blob.Info{}, fmt.Errorf("no blob store configured")
	}
	started := s.clock.Now()
	if _, err := s.store.GetRecord(ctx, recordID); err != nil {
		s.observe(ctx, "attach_file", started, err)
		return blob.Info{}, err
	}
	info, err := s.blobs.Put(ctx, recordID+"/"+filename, r, blob.PutOptions{ContentType: contentType})
	s.observe(ctx, "attach_file", started, err)
	if err == nil {
		s.log.Debug("file attached", "record", recordID, "key", info.Key, "bytes", info.Size)
	}
	return info, err
}

// RetrieveFile opens a previously attached artifact payload.
func (s *Service) RetrieveFile(ctx context.Context, recordID, filename string) (blob.Info, io.ReadCloser, error) {
	if s.blobs == nil {
		return blob.Info{}, nil, fmt.Errorf("no blob store configured")
	}
	started := s.clock.Now()
	info, rc, err := s.blobs.Get(ctx, recordID+"/"+filename)
	s.observe(ctx, "retrieve_file", started, err)
	return info, rc, err
}

// ListFiles lists the artifact payloads stored for a record.
func (s *Service) ListFiles(ctx context.Context, recordID string) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("no blob store configured")
	}
	return s.blobs.List(ctx, recordID+"/")
}

// Close releases the underlying store.
func (s *Service) Close() error { return s.store.Close() }
