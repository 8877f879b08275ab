package partitions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thoas/go-funk"
)

// Assignment is a routing decision: a group key bound to a destination worker.
type Assignment struct {
	Key    string `json:"key"`
	Worker int    `json:"worker"`
}

// Assignments is the key routing table of one shuffle.
type Assignments []Assignment

// ToMap converts the assignments into a mapping of key to worker index.
func (as Assignments) ToMap() map[string]int {
	m := make(map[string]int, len(as))
	for _, a := range as {
		m[a.Key] = a.Worker
	}
	return m
}

// Keys returns an unordered list of assigned keys.
func (as Assignments) Keys() (kk []string) {
	for _, a := range as {
		kk = append(kk, a.Key)
	}
	return
}

func (as Assignments) Pretty() (s string) {
	groupsByWorker := make(map[int][]string)
	for _, a := range as {
		groupsByWorker[a.Worker] = append(groupsByWorker[a.Worker], a.Key)
	}
	workers := funk.Keys(groupsByWorker).([]int)
	sort.Ints(workers)
	for _, w := range workers {
		s += fmt.Sprintf("  #%d: %s\n", w, strings.Join(ellipsis(groupsByWorker[w], 50, 500), ", "))
	}
	return
}

func ellipsis(ss []string, maxElemLen, maxLen int) []string {
	lenSum := 0
	for i, s := range ss {
		if len(s) > maxElemLen {
			s = s[:maxElemLen] + "…"
			ss[i] = s
		}
		lenSum += len(s)
		if lenSum+len(s) > maxLen {
			return append(ss[:i], "…")
		}
	}
	return ss
}
