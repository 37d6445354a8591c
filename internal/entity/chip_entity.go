package entity

type ChipIntent struct {
	Id           uint
	Intent       string
	ResponseText string
	IsActive     bool
	DisplayOrder int
}

type ChipPattern struct {
	Id           uint
	IntentId     uint
	PatternRegex string
	IsActive     bool
	DisplayOrder int
}
