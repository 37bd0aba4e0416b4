package board

// CardAction identifies what a chance or chest card does when drawn.
type CardAction string

const (
	ActionMoneyAdd          CardAction = "money_add"
	ActionMoneySubtract     CardAction = "money_subtract"
	ActionCollectFromAll    CardAction = "collect_from_all"
	ActionRepairs           CardAction = "repairs"
	ActionMoveTo            CardAction = "move_to"
	ActionGoToJail          CardAction = "go_to_jail"
	ActionMoveToRandom      CardAction = "move_to_random"
	ActionMoveBackwardRand  CardAction = "move_backward_random"
	ActionMoveForwardRand   CardAction = "move_forward_random"
	ActionMoveSteps         CardAction = "move_steps"
	ActionAddInventory      CardAction = "add_inventory"
	ActionAddEffect         CardAction = "add_effect"
	ActionClearDebtFull     CardAction = "clear_debt_full"
	ActionClearDebtPartial  CardAction = "clear_debt_partial"
)

// Inventory item types granted by cards.
const (
	ItemJailCard        = "jail_card"
	ItemRobberyImmunity = "robbery_immunity"
	ItemTaxImmunity     = "tax_immunity"
)

// One-shot purchase effects granted by cards.
const EffectDiscount50 = "discount_50"

// Card is one chance or chest card. Fields beyond Action are used
// depending on the action kind.
type Card struct {
	ID        int
	Text      string
	Action    CardAction
	Amount    int
	Target    int
	Steps     int
	HouseCost int
	HotelCost int
	Item      string
	Fraction  float64
}

// ChanceCards is the chance deck in draw-pool order.
var ChanceCards = []Card{
	{ID: 1, Text: "Bank pays you dividend of $50.", Action: ActionMoneyAdd, Amount: 50},
	{ID: 2, Text: "You have won a crossword competition. Collect $100.", Action: ActionMoneyAdd, Amount: 100},
	{ID: 3, Text: "Pay poor tax of $15.", Action: ActionMoneySubtract, Amount: 15},
	{ID: 4, Text: "Speeding fine! Pay $20.", Action: ActionMoneySubtract, Amount: 20},
	{ID: 5, Text: "Make general repairs on all your property. Pay $25 per house, $100 per hotel.", Action: ActionRepairs, HouseCost: 25, HotelCost: 100},
	{ID: 6, Text: "Advance to GO. Collect $1000.", Action: ActionMoveTo, Target: StartIndex},
	{ID: 7, Text: "Go to Jail. Do not pass GO, do not collect $1000.", Action: ActionGoToJail, Target: JailIndex},
	{ID: 8, Text: "Teleport! Advance to a random space.", Action: ActionMoveToRandom},
	{ID: 9, Text: "Go Back Random Spaces (1-10).", Action: ActionMoveBackwardRand},
	{ID: 10, Text: "Take a ride! Move forward Random Spaces (1-10).", Action: ActionMoveForwardRand},
	{ID: 11, Text: "Drunk driver! Stumble back 2 spaces.", Action: ActionMoveSteps, Steps: -2},
	{ID: 12, Text: "Property sale! Your next purchase is 50% off.", Action: ActionAddEffect, Item: EffectDiscount50},
}

// ChestCards is the chest deck in draw-pool order.
var ChestCards = []Card{
	{ID: 1, Text: "Bank error in your favor. Collect $200.", Action: ActionMoneyAdd, Amount: 200},
	{ID: 2, Text: "Pay Hospital Fees of $100.", Action: ActionMoneySubtract, Amount: 100},
	{ID: 3, Text: "Grand Opera Night. Collect $50 from every player.", Action: ActionCollectFromAll, Amount: 50},
	{ID: 4, Text: "Get Out of Jail Free.", Action: ActionAddInventory, Item: ItemJailCard},
	{ID: 5, Text: "You are assessed for street repairs. Pay $40 per house, $115 per hotel.", Action: ActionRepairs, HouseCost: 40, HotelCost: 115},
	{ID: 6, Text: "Go to Jail.", Action: ActionGoToJail, Target: JailIndex},
	{ID: 7, Text: "All thieves are caught once! You are safe from the next robbery.", Action: ActionAddInventory, Item: ItemRobberyImmunity},
	{ID: 8, Text: "Income Tax Refund! You are free from the next tax payment.", Action: ActionAddInventory, Item: ItemTaxImmunity},
	{ID: 9, Text: "Your properties are booming! The Bank clears your current debt.", Action: ActionClearDebtFull},
	{ID: 10, Text: "Bank Subsidy! 30% of your debt is forgiven.", Action: ActionClearDebtPartial, Fraction: 0.30},
}
