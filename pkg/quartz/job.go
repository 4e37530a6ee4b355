package quartz

// JobDetail describes a unit of executable work. The Handler field is an
// opaque reference resolved by the scheduling engine; the store never
// interprets it.
type JobDetail struct {
	Name        string
	Group       string
	Description string
	Handler     string

	// Durable jobs may exist without any trigger referencing them.
	Durable bool

	// RequestsRecovery asks the engine to re-execute the job if it was
	// running when the process died.
	RequestsRecovery bool

	// Data is passed verbatim to the job on execution.
	Data map[string]any
}

func NewJobDetail(key Key, handler string) *JobDetail {
	return &JobDetail{Name: key.Name, Group: key.Group, Handler: handler}
}

func (j *JobDetail) Key() Key { return NewKey(j.Group, j.Name) }

// Clone returns a deep copy; the data map is never shared.
func (j *JobDetail) Clone() *JobDetail {
	cp := *j
	if j.Data != nil {
		cp.Data = make(map[string]any, len(j.Data))
		for k, v := range j.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}
