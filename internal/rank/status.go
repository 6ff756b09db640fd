package rank

// Badge is an emoji with its hover label.
type Badge struct {
	Emoji string
	Label string
}

// Status badges shown in the page's status column.
var (
	BadgeBestseller   = Badge{"🔥", "Bestseller"}
	BadgeRareFind     = Badge{"🔎", "Rare find"}
	BadgeHiddenGem    = Badge{"💎", "Hidden gem"}
	BadgeExpansion    = Badge{"🧩", "Expansion"}
	BadgeReimplements = Badge{"♻️", "Reimplements"}
	BadgeHasVersions  = Badge{"🌐", "Has versions"}
	BadgeLight        = Badge{"🟢", "Light"}
	BadgeMedium       = Badge{"🟡", "Medium"}
	BadgeComplicated  = Badge{"🟠", "Complicated"}
	BadgeHardcore     = Badge{"🔴", "Hardcore"}
)

// RankStatus classifies a game by its official BGG rank.
func RankStatus(bggRank int) Badge {
	switch {
	case bggRank <= 200:
		return BadgeBestseller
	case bggRank <= 1000:
		return BadgeRareFind
	default:
		return BadgeHiddenGem
	}
}

// Complexity classifies a BGG weight (1-5).
func Complexity(weight float64) Badge {
	switch {
	case weight < 2:
		return BadgeLight
	case weight < 3:
		return BadgeMedium
	case weight < 4:
		return BadgeComplicated
	default:
		return BadgeHardcore
	}
}

// Badges lists the status icons for an entry: rank status, detail flags,
// then complexity. Missing details count as weight 0. Rows without an
// official rank get no rank status.
func Badges(e Entry) []Badge {
	var badges []Badge
	if e.Game.BGGRank > 0 {
		badges = append(badges, RankStatus(e.Game.BGGRank))
	}
	var weight float64
	if d := e.Details; d != nil {
		if d.IsExpansion {
			badges = append(badges, BadgeExpansion)
		}
		if d.Reimplements {
			badges = append(badges, BadgeReimplements)
		}
		if d.HasVersions {
			badges = append(badges, BadgeHasVersions)
		}
		weight = d.Weight
	}
	return append(badges, Complexity(weight))
}
