package andi_test

import "errors"

// Shared fixture graph for planner/build tests.
//
// The diamond below (E depends on B, C, D; C and D share A and each other's
// subtrees) exercises step ordering and dedup; A depending back on E closes
// a cycle unless A is provided externally.

type Config struct{ DSN string }

type Logger struct{ Level string }

type DB struct {
	DSN string
}

type UserService struct {
	DB  *DB
	Log *Logger
}

func NewConfig() Config { return Config{DSN: "postgres://"} }

func NewLogger(c Config) *Logger { return &Logger{Level: "info"} }

var errDialFailed = errors.New("dial failed")

func NewDB(c Config) (*DB, error) {
	if c.DSN == "" {
		return nil, errDialFailed
	}
	return &DB{DSN: c.DSN}, nil
}

func NewUserService(db *DB, l *Logger) *UserService {
	return &UserService{DB: db, Log: l}
}

// Interface candidates (the union analog): two stores, selection follows
// provider registration order.

type Store interface{ Put(k, v string) }

type MemStore struct{ m map[string]string }

func (s *MemStore) Put(k, v string) {
	if s.m == nil {
		s.m = map[string]string{}
	}
	s.m[k] = v
}

type DiskStore struct{ dir string }

func (s *DiskStore) Put(k, v string) {}

func NewMemStore() *MemStore { return &MemStore{} }

func NewDiskStore() *DiskStore { return &DiskStore{dir: "/tmp"} }

type Indexer struct{ Store Store }

func NewIndexer(s Store) *Indexer { return &Indexer{Store: s} }

// Optional dependency resolved from a registry.

type Tracer interface{ Trace(msg string) }

type RecordingTracer struct{ msgs []string }

func (t *RecordingTracer) Trace(msg string) { t.msgs = append(t.msgs, msg) }

type Pipeline struct {
	Store  Store
	Tracer Tracer
}

func NewPipeline(s Store, t Tracer) *Pipeline { return &Pipeline{Store: s, Tracer: t} }

// Diamond graph ported to constructors.

type A struct{ E *E }
type B struct{}
type C struct {
	A *A
	B *B
}
type D struct {
	A *A
	C *C
}
type E struct {
	B *B
	C *C
	D *D
}

func NewA(e *E) *A { return &A{E: e} }

func NewB() *B { return &B{} }

func NewC(a *A, b *B) *C { return &C{A: a, B: b} }

func NewD(a *A, c *C) *D { return &D{A: a, C: c} }

func NewE(b *B, c *C, d *D) *E {
	return &E{B: b, C: c, D: d}
}
