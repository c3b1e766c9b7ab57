package aamp

import (
	"fmt"
	"strings"
	"sync"
)

var defaultNames = []string{
	"param_root", "Elink", "Param", "Params", "Children", "ChildParams",
	"SetupParams", "UserParam", "LinkTarget", "LinkTargets", "ActorLink",
	"Header", "Body", "Item", "Items", "Shape", "ShapeParam", "RigidBodySet",
	"RigidBody", "RigidBodySetParam", "Default", "Common", "Parameter",
	"AIProgram", "AI", "Action", "Behavior", "Query", "DemoAIActionIdx",
	"ClassName", "Name", "Type", "Value", "Values", "Group", "Groups",
	"Table", "Tables", "TableNum", "TableName", "ColumnNum", "RepeatNum",
	"ProbNum", "ApproachProb", "Cooking", "Enemy", "Arrow", "Weapon",
	"General", "System", "Physics", "Chemical", "Drop", "Shop", "Recipe",
	"ASDefine", "ASDefines", "Filename", "ModelData", "ModelList",
	"Unit", "UnitName", "BindBone", "Folder", "AnimationInfo", "Base",
	"Elements", "Element", "ConditionList", "Condition", "Condition_",
}

// NameTable resolves name hashes to the names they were computed from.
// It is safe for concurrent use.
type NameTable struct {
	mu    sync.RWMutex
	names map[uint32]string
}

// Names is the table shared by every document of the process.
var Names = NewNameTable()

// NewNameTable creates a table seeded with common names.
func NewNameTable() *NameTable {
	t := &NameTable{names: make(map[uint32]string, len(defaultNames))}
	for _, name := range defaultNames {
		t.names[HashName(name)] = name
	}
	return t
}

// Add records name and returns its hash.
func (t *NameTable) Add(name string) uint32 {
	h := HashName(name)
	t.mu.Lock()
	t.names[h] = name
	t.mu.Unlock()
	return h
}

// AddNumbered records prefix0 through prefix{count-1}.
func (t *NameTable) AddNumbered(prefix string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		t.names[HashName(name)] = name
	}
}

// Lookup returns the known name of hash.
func (t *NameTable) Lookup(hash uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.names[hash]
	return name, ok
}

// Guess tries names derived from the parent name and the child index, as used
// for numbered children, and records a match.
func (t *NameTable) Guess(hash uint32, parent string, index int) (string, bool) {
	if name, ok := t.Lookup(hash); ok {
		return name, true
	}
	if parent == "" {
		return "", false
	}

	prefixes := []string{parent}
	for _, suffix := range []string{"s", "es", "ren", "List", "list", "Array", "Params"} {
		if trimmed := strings.TrimSuffix(parent, suffix); trimmed != parent && trimmed != "" {
			prefixes = append(prefixes, trimmed)
		}
	}

	for _, prefix := range prefixes {
		for _, i := range []int{index, index + 1} {
			for _, format := range []string{"%s%d", "%s_%d", "%s%02d", "%s_%02d", "%s%03d", "%s_%03d"} {
				candidate := fmt.Sprintf(format, prefix, i)
				if HashName(candidate) == hash {
					t.Add(candidate)
					return candidate, true
				}
			}
		}
	}
	return "", false
}
