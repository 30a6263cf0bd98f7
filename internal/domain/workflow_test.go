package domain

import (
	"testing"
)

func basicWorkflow() *Workflow {
	wf := NewWorkflow("test")
	wf.AddNode(WorkflowNode{ID: "a", Type: "input"})
	wf.AddNode(WorkflowNode{ID: "b", Type: "output"})
	wf.AddConnection(WorkflowConnection{FromNode: "a", ToNode: "b"})
	return wf
}

func TestValidateStructure_Valid(t *testing.T) {
	wf := basicWorkflow()

	if errs := wf.ValidateStructure(); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateStructure_DuplicateNodeID(t *testing.T) {
	wf := basicWorkflow()
	wf.AddNode(WorkflowNode{ID: "a", Type: "delay"})

	errs := wf.ValidateStructure()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateStructure_DanglingConnection(t *testing.T) {
	wf := basicWorkflow()
	wf.AddConnection(WorkflowConnection{FromNode: "a", ToNode: "missing"})
	wf.AddConnection(WorkflowConnection{FromNode: "ghost", ToNode: "b"})

	errs := wf.ValidateStructure()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestRemoveNode(t *testing.T) {
	wf := basicWorkflow()

	if !wf.RemoveNode("a") {
		t.Fatal("RemoveNode returned false for existing node")
	}
	if wf.GetNode("a") != nil {
		t.Error("node still present after removal")
	}
	if len(wf.Connections) != 0 {
		t.Errorf("connections not cleaned up: %v", wf.Connections)
	}

	if wf.RemoveNode("a") {
		t.Error("RemoveNode returned true for missing node")
	}
}

func TestConnectionDefaultKeys(t *testing.T) {
	c := WorkflowConnection{FromNode: "a", ToNode: "b"}
	if got := c.OutputKey(); got != DefaultOutputKey {
		t.Errorf("OutputKey = %q, want %q", got, DefaultOutputKey)
	}
	if got := c.InputKey(); got != DefaultInputKey {
		t.Errorf("InputKey = %q, want %q", got, DefaultInputKey)
	}

	c = WorkflowConnection{FromNode: "a", ToNode: "b", FromOutput: "result", ToInput: "data"}
	if got := c.OutputKey(); got != "result" {
		t.Errorf("OutputKey = %q, want %q", got, "result")
	}
	if got := c.InputKey(); got != "data" {
		t.Errorf("InputKey = %q, want %q", got, "data")
	}
}

func TestNodeInputsOutputs(t *testing.T) {
	wf := NewWorkflow("fanout")
	wf.AddNode(WorkflowNode{ID: "src", Type: "input"})
	wf.AddNode(WorkflowNode{ID: "left", Type: "http"})
	wf.AddNode(WorkflowNode{ID: "right", Type: "http"})
	wf.AddConnection(WorkflowConnection{FromNode: "src", ToNode: "left"})
	wf.AddConnection(WorkflowConnection{FromNode: "src", ToNode: "right"})

	if got := len(wf.NodeOutputs("src")); got != 2 {
		t.Errorf("NodeOutputs(src) = %d, want 2", got)
	}
	if got := len(wf.NodeInputs("left")); got != 1 {
		t.Errorf("NodeInputs(left) = %d, want 1", got)
	}
	if got := len(wf.NodeInputs("src")); got != 0 {
		t.Errorf("NodeInputs(src) = %d, want 0", got)
	}
}
