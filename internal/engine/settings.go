package engine

import "time"

// Settings carries per-room options. Variants read the knobs they care
// about and ignore the rest; zero values fall back to variant defaults.
type Settings struct {
	MinPlayers  int
	MaxPlayers  int
	TurnTimeout time.Duration

	// board games
	BoardSize    int
	WinCondition int

	// team formats, "1v1" or "2v2"
	Format string

	// quiz / wordle
	TotalQuestions  int
	QuestionTimeout time.Duration
	Rounds          int

	// chess clocks
	InitialTime time.Duration
	Increment   time.Duration

	// poker
	SmallBlind      int64
	BigBlind        int64
	BuyIn           int64
	ShowdownTimeout time.Duration
	InterHandDelay  time.Duration

	// deterministic shuffles in tests; 0 means seed from the clock
	Seed int64
}

func (s Settings) WithDefaults(def Settings) Settings {
	if s.MinPlayers == 0 {
		s.MinPlayers = def.MinPlayers
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = def.MaxPlayers
	}
	if s.TurnTimeout == 0 {
		s.TurnTimeout = def.TurnTimeout
	}
	if s.BoardSize == 0 {
		s.BoardSize = def.BoardSize
	}
	if s.WinCondition == 0 {
		s.WinCondition = def.WinCondition
	}
	if s.Format == "" {
		s.Format = def.Format
	}
	if s.TotalQuestions == 0 {
		s.TotalQuestions = def.TotalQuestions
	}
	if s.QuestionTimeout == 0 {
		s.QuestionTimeout = def.QuestionTimeout
	}
	if s.Rounds == 0 {
		s.Rounds = def.Rounds
	}
	if s.InitialTime == 0 {
		s.InitialTime = def.InitialTime
	}
	if s.Increment == 0 {
		s.Increment = def.Increment
	}
	if s.SmallBlind == 0 {
		s.SmallBlind = def.SmallBlind
	}
	if s.BigBlind == 0 {
		s.BigBlind = def.BigBlind
	}
	if s.BuyIn == 0 {
		s.BuyIn = def.BuyIn
	}
	if s.ShowdownTimeout == 0 {
		s.ShowdownTimeout = def.ShowdownTimeout
	}
	if s.InterHandDelay == 0 {
		s.InterHandDelay = def.InterHandDelay
	}
	return s
}
