package sync

import (
	"testing"

	"github.com/sdejongh/drivesync/pkg/models"
)

// ============== WorkQueue Tests ==============

func TestWorkQueueOrder(t *testing.T) {
	tests := []struct {
		order models.QueueOrder
		want  []string
	}{
		{models.QueueStack, []string{"c", "b", "a"}},
		{models.QueueFIFO, []string{"a", "b", "c"}},
		{"", []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		name := string(tt.order)
		if name == "" {
			name = "default"
		}
		t.Run(name, func(t *testing.T) {
			q := NewWorkQueue(tt.order)
			for _, id := range []string{"a", "b", "c"} {
				q.Push(models.WorkItem{ContainerID: id})
			}

			var got []string
			for q.Len() > 0 {
				item, ok := q.Pop()
				if !ok {
					t.Fatal("Pop returned false on a non-empty queue")
				}
				got = append(got, item.ContainerID)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("popped %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("popped %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestWorkQueueEmpty(t *testing.T) {
	q := NewWorkQueue(models.QueueFIFO)
	if _, ok := q.Pop(); ok {
		t.Error("Pop on an empty queue should return false")
	}

	// Interleaved pushes and pops keep fifo order after the buffer resets
	q.Push(models.WorkItem{ContainerID: "a"})
	q.Pop()
	q.Push(models.WorkItem{ContainerID: "b"})
	q.Push(models.WorkItem{ContainerID: "c"})
	item, _ := q.Pop()
	if item.ContainerID != "b" {
		t.Errorf("Pop() = %s, want b", item.ContainerID)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}
