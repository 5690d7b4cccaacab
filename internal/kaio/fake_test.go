package kaio

import (
	"testing"
	"time"
)

func TestFakeSubmitAndComplete(t *testing.T) {
	f := NewFake()
	ctx, err := f.Setup(16)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Submit(ctx, &Iocb{Data: 1, Opcode: CmdPread}); err != nil {
		t.Fatal(err)
	}
	f.Complete(ctx, 1, 4096)

	events, err := f.GetEvents(ctx, 1, 8, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Data != 1 || events[0].Res != 4096 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestFakeCancelBeforeComplete(t *testing.T) {
	f := NewFake()
	ctx, _ := f.Setup(16)
	iocb := &Iocb{Data: 7, Opcode: CmdPwrite}
	if err := f.Submit(ctx, iocb); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Cancel(ctx, iocb); err != nil {
		t.Fatalf("expected cancel to succeed before completion: %v", err)
	}
	if _, err := f.Cancel(ctx, iocb); err == nil {
		t.Fatal("expected second cancel to fail, request already removed")
	}
}

func TestFakeCancelAfterCompleteFails(t *testing.T) {
	f := NewFake()
	ctx, _ := f.Setup(16)
	iocb := &Iocb{Data: 3, Opcode: CmdPread}
	_ = f.Submit(ctx, iocb)
	f.Complete(ctx, 3, 0)
	if _, err := f.Cancel(ctx, iocb); err == nil {
		t.Fatal("expected cancel to fail once request already completed")
	}
}

func TestFakeDoubleDestroyCounted(t *testing.T) {
	f := NewFake()
	ctx, _ := f.Setup(16)
	if err := f.Destroy(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.Destroy(ctx); err == nil {
		t.Fatal("expected second destroy to error")
	}
	if f.Stats().DestroyedTwice != 1 {
		t.Fatalf("expected double-destroy counter 1, got %d", f.Stats().DestroyedTwice)
	}
}

func TestFakeSubmitAfterDestroyCounted(t *testing.T) {
	f := NewFake()
	ctx, _ := f.Setup(16)
	_ = f.Destroy(ctx)
	if err := f.Submit(ctx, &Iocb{Data: 9}); err == nil {
		t.Fatal("expected submit after destroy to error")
	}
	if f.Stats().SubmitAfterEnd != 1 {
		t.Fatalf("expected submit-after-end counter 1, got %d", f.Stats().SubmitAfterEnd)
	}
}

func TestFakeGetEventsTimesOutEmpty(t *testing.T) {
	f := NewFake()
	ctx, _ := f.Setup(16)
	events, err := f.GetEvents(ctx, 1, 8, 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}
