package judgeapi

import "testing"

func TestDecodePageKeepsDecodeErrors(t *testing.T) {
	body := []byte(`[
		{"id":1,"epoch_second":10,"execution_time":3},
		{"id":2,"epoch_second":10,"execution_time":"12"},
		{"contest_title":5,"id":3},
		{"id":4,"memory":12.5},
		{"id":"x"}
	]`)
	records, err := DecodePage(body)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("len(records) = %d, want 5", len(records))
	}

	tests := []struct {
		idx       int
		wantErr   bool
		wantID    int64 // 0 when the id itself is unusable
		wantField string
	}{
		{0, false, 1, ""},
		{1, true, 2, "execution_time"},
		{2, true, 3, "contest_title"},
		{3, true, 4, ""},
		{4, true, 0, "id"},
	}
	for _, tt := range tests {
		rec := records[tt.idx]
		if (rec.DecodeErr != nil) != tt.wantErr {
			t.Errorf("records[%d].DecodeErr = %v, want error %v", tt.idx, rec.DecodeErr, tt.wantErr)
			continue
		}
		var gotID int64
		if rec.ID != nil {
			gotID = *rec.ID
		}
		if gotID != tt.wantID {
			t.Errorf("records[%d] id = %d, want %d", tt.idx, gotID, tt.wantID)
		}
		if tt.wantField != "" {
			if got := rec.DecodeErrField(); got != tt.wantField {
				t.Errorf("records[%d].DecodeErrField() = %q, want %q", tt.idx, got, tt.wantField)
			}
		}
	}
	if records[0].ExecutionTime == nil || *records[0].ExecutionTime != 3 {
		t.Errorf("clean record lost execution_time: %+v", records[0])
	}
}
