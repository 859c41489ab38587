package sample

import (
	"errors"
	"testing"

	"github.com/mlahtinen/gradery/internal/domain"
)

func TestDraw_Deterministic(t *testing.T) {
	p := Params{
		ExerciseKey: "course/quiz1",
		QuestionKey: "_fieldgroup0",
		UserID:      "alice",
		Range:       10,
		Count:       4,
	}
	first, err := Draw(p)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	second, err := Draw(p)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("len(Draw()) = %d, want 4", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Draw() not deterministic: %v vs %v", first, second)
		}
	}
}

func TestDraw_InRangeAndDistinct(t *testing.T) {
	got, err := Draw(Params{
		ExerciseKey: "c/e",
		QuestionKey: "q",
		UserID:      "bob",
		Range:       6,
		Count:       6,
	})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	seen := make(map[int]bool)
	for _, idx := range got {
		if idx < 0 || idx >= 6 {
			t.Errorf("index %d out of range", idx)
		}
		if seen[idx] {
			t.Errorf("duplicate index %d", idx)
		}
		seen[idx] = true
	}
}

func TestDraw_UserSeparation(t *testing.T) {
	base := Params{
		ExerciseKey: "c/e",
		QuestionKey: "q",
		Range:       100,
		Count:       5,
	}
	var differs bool
	for _, uid := range []string{"u1", "u2", "u3", "u4"} {
		p := base
		p.UserID = uid
		got, err := Draw(p)
		if err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
		ref := base
		ref.UserID = "u0"
		want, _ := Draw(ref)
		for i := range got {
			if got[i] != want[i] {
				differs = true
			}
		}
	}
	if !differs {
		t.Error("all users drew the identical sample")
	}
}

func TestDraw_ResampleAfterAttempt(t *testing.T) {
	p := Params{
		ExerciseKey:          "c/e",
		QuestionKey:          "q",
		UserID:               "alice",
		ResampleAfterAttempt: true,
		Range:                50,
		Count:                5,
	}
	p.Ordinal = 1
	first, err := Draw(p)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	p.Ordinal = 2
	second, err := Draw(p)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	same := true
	for i := range first {
		if first[i] != second[i] {
			same = false
		}
	}
	if same {
		t.Errorf("expected different samples across ordinals, got %v twice", first)
	}

	// Without resampling, the ordinal must not matter.
	p.ResampleAfterAttempt = false
	p.Ordinal = 1
	first, _ = Draw(p)
	p.Ordinal = 2
	second, _ = Draw(p)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample changed across ordinals without resample flag: %v vs %v", first, second)
		}
	}
}

func TestDraw_CorrectCount(t *testing.T) {
	correct := []int{0, 3, 5}
	incorrect := []int{1, 2, 4, 6, 7}
	got, err := Draw(Params{
		ExerciseKey:      "c/e",
		QuestionKey:      "checkbox1",
		UserID:           "alice",
		Range:            8,
		Count:            4,
		HasCorrectCount:  true,
		CorrectCount:     2,
		CorrectIndexes:   correct,
		IncorrectIndexes: incorrect,
	})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len(Draw()) = %d, want 4", len(got))
	}
	isCorrect := map[int]bool{0: true, 3: true, 5: true}
	var nCorrect int
	for _, idx := range got {
		if isCorrect[idx] {
			nCorrect++
		}
	}
	if nCorrect != 2 {
		t.Errorf("drew %d correct options, want 2 (sample %v)", nCorrect, got)
	}
}

func TestDraw_Bounds(t *testing.T) {
	if _, err := Draw(Params{Range: 3, Count: 4}); err == nil {
		t.Error("expected error when count exceeds range")
	}
	_, err := Draw(Params{
		Range:           4,
		Count:           3,
		HasCorrectCount: true,
		CorrectCount:    2,
		CorrectIndexes:  []int{0},
	})
	if err == nil {
		t.Error("expected error when correct_count exceeds correct options")
	}
}

func TestEncodeDecodeIndexes(t *testing.T) {
	segment := EncodeIndexes([]int{4, 0, 12})
	if segment != "4-0-12" {
		t.Errorf("EncodeIndexes() = %q, want %q", segment, "4-0-12")
	}
	got, err := DecodeIndexes(segment)
	if err != nil {
		t.Fatalf("DecodeIndexes() error = %v", err)
	}
	if len(got) != 3 || got[0] != 4 || got[1] != 0 || got[2] != 12 {
		t.Errorf("DecodeIndexes() = %v", got)
	}
}

func TestDecodeIndexes_Malformed(t *testing.T) {
	if _, err := DecodeIndexes(""); !errors.Is(err, domain.ErrMissingSample) {
		t.Errorf("empty segment error = %v, want ErrMissingSample", err)
	}
	for _, segment := range []string{"a-b", "1--2", "1-x", "-1"} {
		if _, err := DecodeIndexes(segment); !errors.Is(err, domain.ErrInvalidSample) {
			t.Errorf("DecodeIndexes(%q) error = %v, want ErrInvalidSample", segment, err)
		}
	}
}

func TestJoinSplitGroups(t *testing.T) {
	token := JoinGroups([]string{"1-2", "0"})
	if token != "1-2/0" {
		t.Errorf("JoinGroups() = %q", token)
	}
	groups := SplitGroups(token)
	if len(groups) != 2 || groups[0] != "1-2" || groups[1] != "0" {
		t.Errorf("SplitGroups() = %v", groups)
	}
	if got := SplitGroups(""); got != nil {
		t.Errorf("SplitGroups(\"\") = %v, want nil", got)
	}
}

func TestVerify(t *testing.T) {
	const secret = "test-secret"
	token := "3-1-4"
	sum := Checksum(secret, token)

	if err := Verify(secret, token, sum); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
	if err := Verify(secret, "3-1-5", sum); !errors.Is(err, domain.ErrInvalidChecksum) {
		t.Errorf("tampered token error = %v, want ErrInvalidChecksum", err)
	}
	if err := Verify("other", token, sum); !errors.Is(err, domain.ErrInvalidChecksum) {
		t.Errorf("wrong secret error = %v, want ErrInvalidChecksum", err)
	}
	if err := Verify(secret, "", sum); !errors.Is(err, domain.ErrMissingSample) {
		t.Errorf("missing token error = %v, want ErrMissingSample", err)
	}
	if err := Verify(secret, token, ""); !errors.Is(err, domain.ErrMissingSample) {
		t.Errorf("missing checksum error = %v, want ErrMissingSample", err)
	}
}
