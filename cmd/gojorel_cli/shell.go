package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/storage"
	"github.com/sushant-115/gojorel/core/transaction"
	internaltelemetry "github.com/sushant-115/gojorel/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

const helpText = `Commands:
  new <class>                          create an object
  get <id>                             show an object and its relations
  related <id> <property>              show a relation property
  original <id> <property>             show the original value of a relation property
  set <id> <property> <id|null>        assign a cardinality-one property
  add <id> <property> <item>           append to a collection
  insert <id> <property> <index> <item>
  remove <id> <property> <item>        remove from a collection
  delete <id>                          delete an object
  sync <id> <property>                 synchronize a relation
  unsynced                             list unsynchronized end-points
  unload <id> [property]               unload an object or a virtual end-point
  status                               list loaded objects
  commit | rollback
  help
  exit / quit`

// shell runs commands against one transaction. A new transaction is begun
// after every commit.
type shell struct {
	ctx     context.Context
	out     io.Writer
	store   storage.Store
	mapping *mapping.Configuration
	logger  *zap.Logger
	metrics *internaltelemetry.RelationMetrics
	tracer  trace.Tracer
	tx      *transaction.Transaction
}

func newShell(ctx context.Context, out io.Writer, store storage.Store, cfg *mapping.Configuration, logger *zap.Logger, metrics *internaltelemetry.RelationMetrics, tracer trace.Tracer) *shell {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	s := &shell{ctx: ctx, out: out, store: store, mapping: cfg, logger: logger, metrics: metrics, tracer: tracer}
	s.begin()
	return s
}

func (s *shell) begin() {
	s.tx = transaction.Begin(s.ctx, s.store, s.mapping,
		transaction.WithLogger(s.logger),
		transaction.WithMetrics(s.metrics))
}

// execute runs one command. It returns errExit for exit and quit.
func (s *shell) execute(args []string) error {
	if len(args) == 0 {
		return nil
	}
	command := strings.ToLower(args[0])
	_, span := s.tracer.Start(s.ctx, "cli."+command, trace.WithAttributes(attribute.StringSlice("args", args[1:])))
	defer span.End()

	err := s.dispatch(command, args[1:])
	if err != nil && !errors.Is(err, errExit) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *shell) dispatch(command string, args []string) error {
	switch command {
	case "new":
		if len(args) != 1 {
			return usage("new <class>")
		}
		id, err := s.tx.NewObject(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, id)
	case "get":
		if len(args) != 1 {
			return usage("get <id>")
		}
		id, err := domain.ParseObjectID(args[0])
		if err != nil {
			return err
		}
		return s.show(id)
	case "related", "original":
		if len(args) != 2 {
			return usage(command + " <id> <property>")
		}
		id, err := domain.ParseObjectID(args[0])
		if err != nil {
			return err
		}
		return s.showProperty(id, args[1], command == "original")
	case "set":
		if len(args) != 3 {
			return usage("set <id> <property> <id|null>")
		}
		ids, err := parseIDs(args[0], args[2])
		if err != nil {
			return err
		}
		return s.tx.SetRelatedObject(ids[0], args[1], ids[1])
	case "add", "remove":
		if len(args) != 3 {
			return usage(command + " <id> <property> <item>")
		}
		ids, err := parseIDs(args[0], args[2])
		if err != nil {
			return err
		}
		if command == "add" {
			return s.tx.AddRelatedObject(ids[0], args[1], ids[1])
		}
		return s.tx.RemoveRelatedObject(ids[0], args[1], ids[1])
	case "insert":
		if len(args) != 4 {
			return usage("insert <id> <property> <index> <item>")
		}
		index, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[2], err)
		}
		ids, err := parseIDs(args[0], args[3])
		if err != nil {
			return err
		}
		return s.tx.InsertRelatedObject(ids[0], args[1], index, ids[1])
	case "delete":
		if len(args) != 1 {
			return usage("delete <id>")
		}
		id, err := domain.ParseObjectID(args[0])
		if err != nil {
			return err
		}
		return s.tx.Delete(id)
	case "sync":
		if len(args) != 2 {
			return usage("sync <id> <property>")
		}
		id, err := domain.ParseObjectID(args[0])
		if err != nil {
			return err
		}
		return s.tx.SynchronizeRelation(id, args[1])
	case "unsynced":
		for _, id := range s.tx.GetUnsynchronizedEndPoints() {
			fmt.Fprintln(s.out, id)
		}
	case "unload":
		if len(args) < 1 || len(args) > 2 {
			return usage("unload <id> [property]")
		}
		id, err := domain.ParseObjectID(args[0])
		if err != nil {
			return err
		}
		if len(args) == 2 {
			return s.tx.UnloadVirtualEndPoint(id, args[1])
		}
		return s.tx.UnloadData(id)
	case "status":
		for _, id := range s.tx.LoadedObjects() {
			state, err := s.tx.ObjectState(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s %s\n", id, state)
		}
	case "commit":
		if err := s.tx.Commit(); err != nil {
			return err
		}
		s.tx.Discard()
		s.begin()
		fmt.Fprintln(s.out, "committed")
	case "rollback":
		if err := s.tx.Rollback(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "rolled back")
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", command)
	}
	return nil
}

func (s *shell) show(id domain.ObjectID) error {
	if err := s.tx.GetObject(id); err != nil {
		return err
	}
	state, err := s.tx.ObjectState(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s (%s)\n", id, state)
	for _, def := range s.mapping.EndPointsForClass(id.ClassID) {
		if err := s.showProperty(id, def.PropertyName, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *shell) showProperty(id domain.ObjectID, property string, original bool) error {
	def, ok := s.mapping.EndPoint(id.ClassID, property)
	if !ok {
		return fmt.Errorf("%s.%s: %w", id.ClassID, property, domain.ErrUnknownProperty)
	}
	if def.Cardinality == mapping.CardinalityMany {
		items, err := s.tx.GetRelatedObjects(id, property)
		if original {
			items, err = s.tx.GetOriginalRelatedObjects(id, property)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "  %s: [", property)
		for i, item := range items {
			if i > 0 {
				fmt.Fprint(s.out, " ")
			}
			fmt.Fprint(s.out, item)
		}
		fmt.Fprintln(s.out, "]")
		return nil
	}
	value, err := s.tx.GetRelatedObject(id, property)
	if original {
		value, err = s.tx.GetOriginalRelatedObject(id, property)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "  %s: %s\n", property, value)
	return nil
}

func parseIDs(values ...string) ([]domain.ObjectID, error) {
	ids := make([]domain.ObjectID, len(values))
	for i, value := range values {
		id, err := domain.ParseObjectID(value)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func usage(text string) error {
	return fmt.Errorf("usage: %s", text)
}
