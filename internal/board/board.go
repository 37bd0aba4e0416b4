// Package board holds the static track layout: tile kinds, prices,
// rent tables and the chance/chest card decks. All data is immutable
// after process start.
package board

// TrackLength is the number of tiles on the loop.
const TrackLength = 36

// Fixed tile positions.
const (
	StartIndex         = 0
	CashStackIndex     = 3
	AuditIndex         = 7
	ParkingIndex       = 10
	RobBankIndex       = 18
	ForcedAuctionIndex = 23
	PropertyWarIndex   = 26
	JailIndex          = 28
)

// TileKind classifies what happens when a pawn lands on a tile.
type TileKind string

const (
	KindStart         TileKind = "start"
	KindProperty      TileKind = "property"
	KindTrain         TileKind = "train"
	KindChance        TileKind = "chance"
	KindChest         TileKind = "chest"
	KindCashStack     TileKind = "cash_stack"
	KindPropertyWar   TileKind = "property_war"
	KindAudit         TileKind = "audit"
	KindForcedAuction TileKind = "forced_auction"
	KindParking       TileKind = "parking"
	KindRobBank       TileKind = "rob_bank"
	KindJail          TileKind = "jail"
)

// MaxLevel is the highest upgrade level; level 5 is the hotel.
const MaxLevel = 5

// Tile describes one position on the track. Price is zero for
// non-purchasable tiles. RentLevels and UpgradeCost are set only for
// regular properties; trains use the shared TrainRent table.
type Tile struct {
	Index       int
	Name        string
	Kind        TileKind
	Group       int
	Price       int
	UpgradeCost int
	RentLevels  [MaxLevel + 1]int
}

// Purchasable reports whether the tile can be owned.
func (t Tile) Purchasable() bool {
	return t.Kind == KindProperty || t.Kind == KindTrain
}

// TrainRent is indexed by trains-owned minus one.
var TrainRent = [4]int{125, 250, 500, 1000}

// TrainIndexes lists the four train tiles in track order.
var TrainIndexes = [4]int{4, 13, 21, 32}

var tiles = [TrackLength]Tile{
	{Index: 0, Name: "START", Kind: KindStart},
	{Index: 1, Name: "Shop", Kind: KindProperty, Group: 1, Price: 400, UpgradeCost: 200, RentLevels: [6]int{40, 160, 600, 1400, 1720, 2000}},
	{Index: 2, Name: "Super market", Kind: KindProperty, Group: 1, Price: 500, UpgradeCost: 250, RentLevels: [6]int{50, 200, 750, 1750, 2150, 2500}},
	{Index: 3, Name: "Cash Stack", Kind: KindCashStack},
	{Index: 4, Name: "Train", Kind: KindTrain, Price: 1000},
	{Index: 5, Name: "Service station", Kind: KindProperty, Group: 1, Price: 600, UpgradeCost: 300, RentLevels: [6]int{60, 240, 900, 2100, 2580, 3000}},
	{Index: 6, Name: "Swim. pool", Kind: KindProperty, Group: 2, Price: 700, UpgradeCost: 350, RentLevels: [6]int{70, 280, 1050, 2450, 3010, 3500}},
	{Index: 7, Name: "The Audit", Kind: KindAudit},
	{Index: 8, Name: "Zoo", Kind: KindProperty, Group: 2, Price: 800, UpgradeCost: 400, RentLevels: [6]int{80, 320, 1200, 2800, 3440, 4000}},
	{Index: 9, Name: "Ice-rink", Kind: KindProperty, Group: 2, Price: 900, UpgradeCost: 450, RentLevels: [6]int{90, 360, 1350, 3150, 3870, 4500}},
	{Index: 10, Name: "PARKING", Kind: KindParking},
	{Index: 11, Name: "Pizzeria", Kind: KindProperty, Group: 3, Price: 1000, UpgradeCost: 500, RentLevels: [6]int{100, 400, 1500, 3500, 4300, 5000}},
	{Index: 12, Name: "Cinema", Kind: KindProperty, Group: 3, Price: 1100, UpgradeCost: 550, RentLevels: [6]int{110, 440, 1650, 3850, 4730, 5500}},
	{Index: 13, Name: "Train", Kind: KindTrain, Price: 1000},
	{Index: 14, Name: "Night club", Kind: KindProperty, Group: 3, Price: 1200, UpgradeCost: 600, RentLevels: [6]int{120, 480, 1800, 4200, 5160, 6000}},
	{Index: 15, Name: "Airport", Kind: KindProperty, Group: 4, Price: 1300, UpgradeCost: 650, RentLevels: [6]int{130, 520, 1950, 4550, 5590, 6500}},
	{Index: 16, Name: "Car salon", Kind: KindProperty, Group: 4, Price: 1400, UpgradeCost: 700, RentLevels: [6]int{140, 560, 2100, 4900, 6020, 7000}},
	{Index: 17, Name: "Harbor", Kind: KindProperty, Group: 4, Price: 1500, UpgradeCost: 750, RentLevels: [6]int{150, 600, 2250, 5250, 6450, 7500}},
	{Index: 18, Name: "ROB BANK", Kind: KindRobBank},
	{Index: 19, Name: "News paper", Kind: KindProperty, Group: 5, Price: 1600, UpgradeCost: 800, RentLevels: [6]int{160, 640, 2400, 5600, 6880, 8000}},
	{Index: 20, Name: "TV channel", Kind: KindProperty, Group: 5, Price: 1700, UpgradeCost: 850, RentLevels: [6]int{170, 680, 2550, 5950, 7310, 8500}},
	{Index: 21, Name: "Train", Kind: KindTrain, Price: 1000},
	{Index: 22, Name: "Mobile op.", Kind: KindProperty, Group: 5, Price: 1800, UpgradeCost: 900, RentLevels: [6]int{180, 720, 2700, 6300, 7740, 9000}},
	{Index: 23, Name: "Forced Auction", Kind: KindForcedAuction},
	{Index: 24, Name: "Toy factory", Kind: KindProperty, Group: 6, Price: 1900, UpgradeCost: 950, RentLevels: [6]int{190, 760, 2850, 6650, 8170, 9500}},
	{Index: 25, Name: "Candy factory", Kind: KindProperty, Group: 6, Price: 2000, UpgradeCost: 1000, RentLevels: [6]int{200, 800, 3000, 7000, 8600, 10000}},
	{Index: 26, Name: "Property War", Kind: KindPropertyWar},
	{Index: 27, Name: "Organic farm", Kind: KindProperty, Group: 6, Price: 2100, UpgradeCost: 1050, RentLevels: [6]int{210, 840, 3150, 7350, 9030, 10500}},
	{Index: 28, Name: "JAIL", Kind: KindJail},
	{Index: 29, Name: "Oil well", Kind: KindProperty, Group: 7, Price: 2200, UpgradeCost: 1100, RentLevels: [6]int{220, 880, 3300, 7700, 9460, 11000}},
	{Index: 30, Name: "Diamond mine", Kind: KindProperty, Group: 7, Price: 2300, UpgradeCost: 1150, RentLevels: [6]int{230, 920, 3450, 8050, 9890, 11500}},
	{Index: 31, Name: "Chance", Kind: KindChance},
	{Index: 32, Name: "Train", Kind: KindTrain, Price: 1000},
	{Index: 33, Name: "Chest", Kind: KindChest},
	{Index: 34, Name: "Hollywood", Kind: KindProperty, Group: 8, Price: 2400, UpgradeCost: 1200, RentLevels: [6]int{240, 960, 3600, 8400, 10320, 12000}},
	{Index: 35, Name: "Electronics factory", Kind: KindProperty, Group: 8, Price: 2500, UpgradeCost: 1250, RentLevels: [6]int{250, 1000, 3750, 8750, 10750, 12500}},
}

var groupIndex = buildGroupIndex()

func buildGroupIndex() map[int][]int {
	m := make(map[int][]int)
	for _, t := range tiles {
		if t.Kind == KindProperty {
			m[t.Group] = append(m[t.Group], t.Index)
		}
	}
	return m
}

// TileAt returns the tile at index. It reports false for indexes off
// the track.
func TileAt(index int) (Tile, bool) {
	if index < 0 || index >= TrackLength {
		return Tile{}, false
	}
	return tiles[index], true
}

// Name returns the display name of the tile at index, or "Unknown".
func Name(index int) string {
	t, ok := TileAt(index)
	if !ok {
		return "Unknown"
	}
	return t.Name
}

// GroupIndexes returns the track indexes of the properties in a color
// group.
func GroupIndexes(group int) []int {
	src := groupIndex[group]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// PurchasableIndexes returns every ownable tile in track order.
func PurchasableIndexes() []int {
	var out []int
	for _, t := range tiles {
		if t.Purchasable() {
			out = append(out, t.Index)
		}
	}
	return out
}

// RentAt returns the rent for a regular property at the given upgrade
// level. monopoly doubles the base rent but only while the property is
// unimproved.
func RentAt(index, level int, monopoly bool) int {
	t, ok := TileAt(index)
	if !ok || t.Kind != KindProperty {
		return 0
	}
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	if level == 0 && monopoly {
		return t.RentLevels[0] * 2
	}
	return t.RentLevels[level]
}

// TrainRentFor returns the rent for landing on a train whose owner
// holds ownedTrains of the four train tiles.
func TrainRentFor(ownedTrains int) int {
	if ownedTrains < 1 || ownedTrains > len(TrainRent) {
		return 0
	}
	return TrainRent[ownedTrains-1]
}

// UpgradeCostAt returns the per-level house cost; the hotel at
// MaxLevel costs double.
func UpgradeCostAt(index, toLevel int) int {
	t, ok := TileAt(index)
	if !ok || t.Kind != KindProperty {
		return 0
	}
	if toLevel == MaxLevel {
		return t.UpgradeCost * 2
	}
	return t.UpgradeCost
}
