//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatrooms/domain"
	"chatrooms/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Publisher pushes an appended message to the live subscribers of its room.
// It returns the number of subscriptions the message was enqueued to.
type Publisher interface {
	Publish(room domain.RoomID, message domain.Message) int
}

// Emitter is the non-blocking entry point of the telemetry pipeline.
type Emitter interface {
	Emit(e event.Event)
}

// PresenceStore receives the presence transitions computed by the tracker.
type PresenceStore interface {
	SetPresence(ctx context.Context, presence domain.Presence) error
}

type IOrchestrator interface {
	Add(worker ...Worker)
	Start(ctx context.Context) error
	Stop()
}
