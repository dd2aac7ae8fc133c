package pb

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Count is the number of votes received by a single choice.
type Count struct {
	Choice string
	Votes  uint64
}

// Result is the published outcome of a closed poll as reported over the
// control service. An empty winner means no ballots were counted.
type Result struct {
	Method string
	Form   string
	Winner string
	Votes  uint64
	Total  uint64
	Counts []Count
}

// Status is a point in time report of a poll as returned by the control
// service. Counts are only reported while the poll is serving voters.
type Status struct {
	Name     string
	Phase    string
	Method   string
	Form     string
	Choices  []string
	Voters   uint64
	Rejected uint64
	Late     uint64
	Total    uint64
	Counts   []Count
	Updated  time.Time
	Closes   time.Time
	Result   *Result
}

//===========================================================================
// Struct conversion
//===========================================================================

// Proto converts the result into a struct message.
func (r *Result) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(r.fields())
}

func (r *Result) fields() map[string]interface{} {
	return map[string]interface{}{
		"method": r.Method,
		"form":   r.Form,
		"winner": r.Winner,
		"votes":  float64(r.Votes),
		"total":  float64(r.Total),
		"counts": countValues(r.Counts),
	}
}

// ResultFromProto converts a struct message into a result.
func ResultFromProto(msg *structpb.Struct) (*Result, error) {
	if msg == nil {
		return nil, fmt.Errorf("no result in reply")
	}

	fields := msg.GetFields()
	return &Result{
		Method: fields["method"].GetStringValue(),
		Form:   fields["form"].GetStringValue(),
		Winner: fields["winner"].GetStringValue(),
		Votes:  uint64(fields["votes"].GetNumberValue()),
		Total:  uint64(fields["total"].GetNumberValue()),
		Counts: parseCounts(fields["counts"]),
	}, nil
}

// Proto converts the status into a struct message.
func (s *Status) Proto() (*structpb.Struct, error) {
	choices := make([]interface{}, 0, len(s.Choices))
	for _, choice := range s.Choices {
		choices = append(choices, choice)
	}

	data := map[string]interface{}{
		"name":     s.Name,
		"phase":    s.Phase,
		"method":   s.Method,
		"form":     s.Form,
		"choices":  choices,
		"voters":   float64(s.Voters),
		"rejected": float64(s.Rejected),
		"late":     float64(s.Late),
		"total":    float64(s.Total),
		"counts":   countValues(s.Counts),
		"updated":  FormatTime(s.Updated),
		"closes":   FormatTime(s.Closes),
	}

	if s.Result != nil {
		data["result"] = s.Result.fields()
	}

	return structpb.NewStruct(data)
}

// StatusFromProto converts a struct message into a status.
func StatusFromProto(msg *structpb.Struct) (status *Status, err error) {
	if msg == nil {
		return nil, fmt.Errorf("no status in reply")
	}

	fields := msg.GetFields()
	status = &Status{
		Name:     fields["name"].GetStringValue(),
		Phase:    fields["phase"].GetStringValue(),
		Method:   fields["method"].GetStringValue(),
		Form:     fields["form"].GetStringValue(),
		Voters:   uint64(fields["voters"].GetNumberValue()),
		Rejected: uint64(fields["rejected"].GetNumberValue()),
		Late:     uint64(fields["late"].GetNumberValue()),
		Total:    uint64(fields["total"].GetNumberValue()),
		Counts:   parseCounts(fields["counts"]),
	}

	for _, choice := range fields["choices"].GetListValue().GetValues() {
		status.Choices = append(status.Choices, choice.GetStringValue())
	}

	if status.Updated, err = ParseTime(fields["updated"].GetStringValue()); err != nil {
		return nil, fmt.Errorf("could not parse updated timestamp: %w", err)
	}

	if status.Closes, err = ParseTime(fields["closes"].GetStringValue()); err != nil {
		return nil, fmt.Errorf("could not parse closes timestamp: %w", err)
	}

	if result := fields["result"].GetStructValue(); result != nil {
		if status.Result, err = ResultFromProto(result); err != nil {
			return nil, err
		}
	}

	return status, nil
}

func countValues(counts []Count) []interface{} {
	values := make([]interface{}, 0, len(counts))
	for _, count := range counts {
		values = append(values, map[string]interface{}{
			"choice": count.Choice,
			"votes":  float64(count.Votes),
		})
	}
	return values
}

func parseCounts(value *structpb.Value) []Count {
	items := value.GetListValue().GetValues()
	if len(items) == 0 {
		return nil
	}

	counts := make([]Count, 0, len(items))
	for _, item := range items {
		fields := item.GetStructValue().GetFields()
		counts = append(counts, Count{
			Choice: fields["choice"].GetStringValue(),
			Votes:  uint64(fields["votes"].GetNumberValue()),
		})
	}
	return counts
}
