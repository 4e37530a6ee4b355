package quartz

const (
	// DefaultGroup is used when a key is created with an empty group.
	DefaultGroup = "DEFAULT"

	// RecoveryGroup marks triggers that re-fire work lost in a crash.
	// Fired bundles flag triggers in this group so the engine can tell
	// recovery executions from regular ones.
	RecoveryGroup = "RECOVERING_JOBS"
)

// Key identifies a job or a trigger within its group.
type Key struct {
	Group string
	Name  string
}

func NewKey(group, name string) Key {
	if group == "" {
		group = DefaultGroup
	}
	return Key{Group: group, Name: name}
}

func (k Key) String() string { return k.Group + "." + k.Name }

func (k Key) IsZero() bool { return k.Group == "" && k.Name == "" }

// JobID derives the stable document id for a job key.
func JobID(k Key) string { return "job:" + k.Group + "-" + k.Name }

// TriggerID derives the stable document id for a trigger key.
func TriggerID(k Key) string { return "trigger:" + k.Group + "-" + k.Name }
