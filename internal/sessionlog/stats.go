package sessionlog

import (
	"math"

	"github.com/sadopc/focusassist/internal/store"
)

// Block summarises the focus snapshots taken during one pomodoro.
type Block struct {
	Pomodoro  int
	Task      string
	Snapshots int
	// Category is the most frequent category, ties going to the earliest.
	Category          string
	AvgFocus          string
	PercentProductive float64
}

var focusScore = map[string]int{"low": 1, "medium": 2, "high": 3}
var scoreFocus = map[int]string{1: "low", 2: "medium", 3: "high"}

// Stats groups AI_SNAP events into per-pomodoro blocks split at POM_START.
// Pomodoros without snapshots produce no block.
func Stats(events []store.SessionEvent) []Block {
	var blocks []Block
	var cur accumulator
	pom := 0

	for _, e := range events {
		switch e.Type {
		case PomStart:
			if b, ok := cur.flush(); ok {
				blocks = append(blocks, b)
			}
			pom++
			cur = accumulator{pomodoro: pom, task: stringField(e.Data, "task_title")}
		case AISnap:
			cur.add(e.Data)
		}
	}
	if b, ok := cur.flush(); ok {
		blocks = append(blocks, b)
	}
	return blocks
}

type accumulator struct {
	pomodoro   int
	task       string
	categories []string
	focus      []int
	productive []bool
}

func (a *accumulator) add(data map[string]any) {
	if c := stringField(data, "category"); c != "" {
		a.categories = append(a.categories, c)
	}
	if n, ok := focusScore[stringField(data, "focus")]; ok {
		a.focus = append(a.focus, n)
	}
	p, _ := data["productive"].(bool)
	a.productive = append(a.productive, p)
}

func (a *accumulator) flush() (Block, bool) {
	if len(a.categories) == 0 && len(a.focus) == 0 && len(a.productive) == 0 {
		return Block{}, false
	}
	b := Block{Pomodoro: a.pomodoro, Task: a.task, Snapshots: len(a.productive)}

	counts := make(map[string]int)
	var order []string
	for _, c := range a.categories {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	for _, c := range order {
		if counts[c] > counts[b.Category] {
			b.Category = c
		}
	}

	if len(a.focus) > 0 {
		sum := 0
		for _, n := range a.focus {
			sum += n
		}
		avg := int(math.RoundToEven(float64(sum) / float64(len(a.focus))))
		b.AvgFocus = scoreFocus[min(max(avg, 1), 3)]
	}

	if len(a.productive) > 0 {
		n := 0
		for _, p := range a.productive {
			if p {
				n++
			}
		}
		b.PercentProductive = float64(n) / float64(len(a.productive)) * 100
	}
	return b, true
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
