package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clipcheck/clipcheck/internal/store"
)

type countArtifact struct {
	N int `json:"n"`
}

func countingStage(name string, value int, runs *int) Stage {
	return Stage{
		Name:        name,
		NewArtifact: func() any { return &countArtifact{} },
		Run: func(ctx context.Context, prior Outputs) (any, error) {
			*runs++
			return countArtifact{N: value}, nil
		},
	}
}

func TestExecute_RunsStagesInOrder(t *testing.T) {
	st := store.NewDiskStore(t.TempDir())
	var runsA, runsB int

	c := NewController(st, []Stage{
		countingStage("stage_a", 1, &runsA),
		countingStage("stage_b", 2, &runsB),
	})

	if err := c.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if runsA != 1 || runsB != 1 {
		t.Errorf("expected each stage to run once, got a=%d b=%d", runsA, runsB)
	}
	if len(c.Completed) != 2 || c.Completed[0] != "stage_a" || c.Completed[1] != "stage_b" {
		t.Errorf("completed = %v", c.Completed)
	}
	if got := c.Outputs["stage_b"].(countArtifact); got.N != 2 {
		t.Errorf("stage_b output = %+v", got)
	}
}

func TestExecute_ResumesFromArtifacts(t *testing.T) {
	dir := t.TempDir()
	st := store.NewDiskStore(dir)

	var firstRuns int
	first := NewController(st, []Stage{countingStage("stage_a", 7, &firstRuns)})
	if err := first.Execute(context.Background()); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	// Second controller over the same store must load, not recompute.
	var secondRuns int
	second := NewController(store.NewDiskStore(dir), []Stage{countingStage("stage_a", 999, &secondRuns)})
	if err := second.Execute(context.Background()); err != nil {
		t.Fatalf("second Execute: %v", err)
	}

	if secondRuns != 0 {
		t.Errorf("resumed stage ran %d times, want 0", secondRuns)
	}
	if got := second.Outputs["stage_a"].(countArtifact); got.N != 7 {
		t.Errorf("resumed output = %+v, want the stored artifact", got)
	}
	if !second.Metadata["stage_a"].Resumed {
		t.Error("metadata should mark the stage as resumed")
	}
	if len(second.Completed) != 1 || second.Completed[0] != "stage_a" {
		t.Errorf("completed = %v", second.Completed)
	}
}

func TestExecute_StageErrorHaltsAndKeepsArtifacts(t *testing.T) {
	dir := t.TempDir()
	st := store.NewDiskStore(dir)

	var runsA, runsC int
	boom := errors.New("boom")
	c := NewController(st, []Stage{
		countingStage("stage_a", 1, &runsA),
		{
			Name:        "stage_b",
			NewArtifact: func() any { return &countArtifact{} },
			Run: func(ctx context.Context, prior Outputs) (any, error) {
				return nil, boom
			},
		},
		countingStage("stage_c", 3, &runsC),
	})

	err := c.Execute(context.Background())
	if err == nil {
		t.Fatal("expected stage error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the cause: %v", err)
	}
	if want := "stage stage_b"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should name the failing stage", err)
	}

	if runsC != 0 {
		t.Error("stages after the failure must not run")
	}

	// The prior stage's artifact survives for diagnosis.
	var kept countArtifact
	if err := st.Read("stage_a", &kept); err != nil {
		t.Fatalf("prior artifact lost: %v", err)
	}
	if kept.N != 1 {
		t.Errorf("prior artifact = %+v", kept)
	}
}

func TestExecute_StageOutputsFlowForward(t *testing.T) {
	st := store.NewDiskStore(t.TempDir())

	c := NewController(st, []Stage{
		{
			Name:        "produce",
			NewArtifact: func() any { return &countArtifact{} },
			Run: func(ctx context.Context, prior Outputs) (any, error) {
				return countArtifact{N: 21}, nil
			},
		},
		{
			Name:        "consume",
			NewArtifact: func() any { return &countArtifact{} },
			Run: func(ctx context.Context, prior Outputs) (any, error) {
				in := prior["produce"].(countArtifact)
				return countArtifact{N: in.N * 2}, nil
			},
		},
	})

	if err := c.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := c.Outputs["consume"].(countArtifact); got.N != 42 {
		t.Errorf("consume output = %+v, want 42", got)
	}
}
