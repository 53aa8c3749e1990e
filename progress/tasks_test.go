// ABOUTME: Tests for the static task descriptor table and progress band arithmetic.
// ABOUTME: Verifies order, labels, and that bands tile 0..100 without gaps.
package progress

import "testing"

func TestTasksOrder(t *testing.T) {
	want := []string{
		"product_design_task",
		"uiux_design_task",
		"backend_development_task",
		"frontend_development_task",
	}
	if len(Tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(Tasks))
	}
	for i, name := range want {
		if Tasks[i].Name != name {
			t.Errorf("task %d: expected %q, got %q", i, name, Tasks[i].Name)
		}
	}
	if Tasks[3].OutputType != "html" {
		t.Errorf("expected frontend output type html, got %q", Tasks[3].OutputType)
	}
}

func TestBandsTile(t *testing.T) {
	prevUpper := 0
	for i := range Tasks {
		lower, upper := Band(i)
		if lower != prevUpper {
			t.Errorf("task %d: expected lower %d, got %d", i, prevUpper, lower)
		}
		if upper-lower != 25 {
			t.Errorf("task %d: expected band width 25, got %d", i, upper-lower)
		}
		prevUpper = upper
	}
	if prevUpper != 100 {
		t.Errorf("expected last band to end at 100, got %d", prevUpper)
	}
}

func TestLookupTask(t *testing.T) {
	td, ok := LookupTask("backend_development_task")
	if !ok {
		t.Fatal("expected backend task to be found")
	}
	if td.Agent != "Backend Engineer" {
		t.Errorf("expected agent Backend Engineer, got %q", td.Agent)
	}
	if _, ok := LookupTask("nope"); ok {
		t.Error("expected unknown task lookup to fail")
	}
}
