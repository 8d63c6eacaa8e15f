package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseValidate,
				Kind:   KindInvalidConfig,
				Op:     "create",
				Path:   []string{"config", "seed_offset"},
				Detail: "seed offset requires a mnemonic",
			},
			contains: []string{"[validate]", "invalid_config", "in create", "config.seed_offset", "seed offset requires"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLifecycle,
				Kind:  KindClosed,
			},
			contains: []string{"[lifecycle]", "closed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEngine,
				Kind:   KindEngine,
				Detail: "bad mnemonic",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[engine]", "engine", "bad mnemonic", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEngine,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause in chain")
	}
}

func TestError_Is(t *testing.T) {
	err := Closed("get_mnemonic")

	if !errors.Is(err, ErrClosed) {
		t.Error("closed error should match ErrClosed sentinel")
	}
	if errors.Is(err, ErrUnsupported) {
		t.Error("closed error should not match ErrUnsupported")
	}
	if !errors.Is(err, &Error{Phase: PhaseLifecycle, Kind: KindClosed}) {
		t.Error("should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseEngine, Kind: KindClosed}) {
		t.Error("should not match a different phase")
	}
	if errors.Is(err, errors.New("closed")) {
		t.Error("should not match a plain error")
	}
}

func TestError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("close wallet: %w", NotFound("get_address_index", "address", "4abc", nil))

	if !errors.Is(err, ErrNotFound) {
		t.Error("wrapped not-found error should match ErrNotFound")
	}

	var target *Error
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed")
	}
	if target.Op != "get_address_index" {
		t.Errorf("Op = %q, want get_address_index", target.Op)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("trap")
	err := New(PhaseEngine, KindEngine).
		Op("get_address").
		Path("account", "3").
		Value(3).
		Detail("index %d rejected", 3).
		Cause(cause).
		Build()

	if err.Phase != PhaseEngine || err.Kind != KindEngine {
		t.Errorf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Op != "get_address" {
		t.Errorf("Op = %q", err.Op)
	}
	if len(err.Path) != 2 || err.Path[1] != "3" {
		t.Errorf("Path = %v", err.Path)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v", err.Value)
	}
	if err.Detail != "index 3 rejected" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable")
	}
}

func TestBuilder_DetailWithoutArgs(t *testing.T) {
	err := New(PhaseQueue, KindPanic).Detail("worker busy").Build()
	if err.Detail != "worker busy" {
		t.Errorf("Detail = %q, want literal", err.Detail)
	}

	err = New(PhaseQueue, KindPanic).Detail("%d%% busy", 100).Build()
	if err.Detail != "100% busy" {
		t.Errorf("Detail = %q, want formatted", err.Detail)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err   *Error
		name  string
		phase Phase
		kind  Kind
	}{
		{InvalidConfig("mnemonic", 2, "conflict"), "InvalidConfig", PhaseValidate, KindInvalidConfig},
		{Closed("op"), "Closed", PhaseLifecycle, KindClosed},
		{Unsupported("get_accounts", "no registry"), "Unsupported", PhaseLifecycle, KindUnsupported},
		{NotFound("op", "address", "x", nil), "NotFound", PhaseEngine, KindNotFound},
		{Engine("op", "boom"), "Engine", PhaseEngine, KindEngine},
		{QueueClosed("op"), "QueueClosed", PhaseQueue, KindQueueClosed},
		{Panic("op", "boom"), "Panic", PhaseQueue, KindPanic},
		{InvalidData(PhaseDecode, "op", "bad json"), "InvalidData", PhaseDecode, KindInvalidData},
		{MissingExport("memory"), "MissingExport", PhaseLoad, KindMissingExport},
		{AllocationFailed("op", 16, nil), "AllocationFailed", PhaseEngine, KindAllocation},
		{OutOfBounds("op", 10, 5), "OutOfBounds", PhaseEngine, KindOutOfBounds},
		{NotInitialized(PhaseLoad, "engine"), "NotInitialized", PhaseLoad, KindNotInitialized},
		{Instantiation(nil), "Instantiation", PhaseLoad, KindInstantiation},
		{Load("compile", nil), "Load", PhaseLoad, KindInvalidData},
		{RPC("get_address", nil), "RPC", PhaseRPC, KindEngine},
		{Wrap(PhaseDecode, KindInvalidData, nil, "x"), "Wrap", PhaseDecode, KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("phase = %s, want %s", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestPanic_ErrorValue(t *testing.T) {
	cause := errors.New("nil map write")
	err := Panic("get_mnemonic", cause)
	if !errors.Is(err, cause) {
		t.Error("panic with error value should keep it as cause")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Closed("x"))
	kind, ok := KindOf(wrapped)
	if !ok || kind != KindClosed {
		t.Errorf("KindOf = %q, %v", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("plain error should have no kind")
	}
	if _, ok := KindOf(nil); ok {
		t.Error("nil error should have no kind")
	}
}
