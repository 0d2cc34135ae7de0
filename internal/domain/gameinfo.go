package domain

// PlayerConfig is the player-count mode from the GameInfo bitfield
type PlayerConfig int

const (
	PlayerConfigSingles            PlayerConfig = 0
	PlayerConfigCompetitiveDoubles PlayerConfig = 2
	PlayerConfigCooperativeDoubles PlayerConfig = 3
)

// String returns the human-readable game mode
func (p PlayerConfig) String() string {
	switch p {
	case PlayerConfigSingles:
		return "Singles"
	case PlayerConfigCompetitiveDoubles:
		return "Competitive Doubles"
	case PlayerConfigCooperativeDoubles:
		return "Cooperative Doubles"
	default:
		return "Unknown"
	}
}

// SkillMode is the skill setting from the GameInfo bitfield
type SkillMode int

const (
	SkillBeginner     SkillMode = 0
	SkillIntermediate SkillMode = 1
	SkillAdvanced     SkillMode = 2
	SkillExpert       SkillMode = 3
)

func (s SkillMode) String() string {
	switch s {
	case SkillBeginner:
		return "Beginner"
	case SkillIntermediate:
		return "Intermediate"
	case SkillAdvanced:
		return "Advanced"
	case SkillExpert:
		return "Expert"
	default:
		return "Unknown"
	}
}

// ControlMode is the input setting from the GameInfo bitfield
type ControlMode int

const (
	ControlKeyboard ControlMode = 0
	ControlMouse    ControlMode = 1
	ControlGamepad  ControlMode = 2
	ControlMixed    ControlMode = 3
)

func (c ControlMode) String() string {
	switch c {
	case ControlKeyboard:
		return "Keyboard"
	case ControlMouse:
		return "Mouse"
	case ControlGamepad:
		return "Gamepad"
	case ControlMixed:
		return "Mixed"
	default:
		return "Unknown"
	}
}

// GameInfo is the unpacked 28-bit match configuration bitfield.
//
// Layout, packed from the least-significant bit upward:
//
//	bits 0-1   Trial (2)
//	bits 2-4   PlayerConfig (3)
//	bits 5-6   NbSet (2)
//	bits 7-8   SkillMode (2)
//	bits 9-17  reserved/court (9, ignored)
//	bits 18-20 GamesPerSet (3)
//	bit  21    unused (1, ignored)
//	bits 22-23 ControlMode (2)
//	bits 24-26 Preview (3)
//	bit  27    Tiredness (1)
type GameInfo struct {
	Raw          int64        `json:"raw"`
	Trial        int          `json:"trial"`
	PlayerConfig PlayerConfig `json:"player_config"`
	NbSet        int          `json:"nb_set"`
	SkillMode    SkillMode    `json:"skill_mode"`
	GamesPerSet  int          `json:"games_per_set"`
	ControlMode  ControlMode  `json:"control_mode"`
	Preview      int          `json:"preview"`
	Tiredness    bool         `json:"tiredness"`
}

// UnpackGameInfo extracts the GameInfo sub-fields from the packed integer
func UnpackGameInfo(v int64) GameInfo {
	return GameInfo{
		Raw:          v,
		Trial:        int(v >> 0 & 0x3),
		PlayerConfig: PlayerConfig(v >> 2 & 0x7),
		NbSet:        int(v >> 5 & 0x3),
		SkillMode:    SkillMode(v >> 7 & 0x3),
		GamesPerSet:  int(v >> 18 & 0x7),
		ControlMode:  ControlMode(v >> 22 & 0x3),
		Preview:      int(v >> 24 & 0x7),
		Tiredness:    v>>27&0x1 == 1,
	}
}

// FormatClass maps the NbSet sub-field to a best-of-N class.
// NbSet 0 and 1 both encode a single-set match.
func (g GameInfo) FormatClass() string {
	switch g.NbSet {
	case 2:
		return FormatBo3
	case 3:
		return FormatBo5
	default:
		return FormatBo1
	}
}

// SetsDisplay returns the human-readable set count
func (g GameInfo) SetsDisplay() string {
	switch g.NbSet {
	case 2:
		return "Best of 3"
	case 3:
		return "Best of 5"
	default:
		return "Best of 1"
	}
}
