package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ludobackend/internal/domain"
)

func twoColorTokens() map[domain.Color][]domain.Token {
	return map[domain.Color][]domain.Token{
		domain.ColorRed: {
			{ID: 0, Color: domain.ColorRed, Position: -1, Status: domain.TokenBase, Steps: 0},
			{ID: 1, Color: domain.ColorRed, Position: -1, Status: domain.TokenBase, Steps: 0},
			{ID: 2, Color: domain.ColorRed, Position: -1, Status: domain.TokenBase, Steps: 0},
			{ID: 3, Color: domain.ColorRed, Position: -1, Status: domain.TokenBase, Steps: 0},
		},
		domain.ColorYellow: {
			{ID: 0, Color: domain.ColorYellow, Position: -1, Status: domain.TokenBase, Steps: 0},
			{ID: 1, Color: domain.ColorYellow, Position: -1, Status: domain.TokenBase, Steps: 0},
			{ID: 2, Color: domain.ColorYellow, Position: -1, Status: domain.TokenBase, Steps: 0},
			{ID: 3, Color: domain.ColorYellow, Position: -1, Status: domain.TokenBase, Steps: 0},
		},
	}
}

func TestFindValidMoves_BaseReleaseRequiresSix(t *testing.T) {
	tokens := twoColorTokens()

	moves := FindValidMoves(tokens, 5, []domain.Color{domain.ColorRed})
	assert.Empty(t, moves)

	moves = FindValidMoves(tokens, 6, []domain.Color{domain.ColorRed})
	assert.Len(t, moves, 4)
}

func TestApplyMove_BaseRelease(t *testing.T) {
	tokens := twoColorTokens()
	tok := tokens[domain.ColorRed][0]

	result := ApplyMove(tok, 6, tokens, []domain.Color{domain.ColorRed}, false)
	assert.Equal(t, 0, result.UpdatedToken.Position) // red homeStart
	assert.Equal(t, domain.TokenActive, result.UpdatedToken.Status)
	assert.Equal(t, 0, result.UpdatedToken.Steps)
	assert.Empty(t, result.Captured)
}

func TestApplyMove_CapturesLoneEnemy(t *testing.T) {
	tokens := twoColorTokens()
	tokens[domain.ColorRed][0] = domain.Token{ID: 0, Color: domain.ColorRed, Position: 2, Status: domain.TokenActive, Steps: 2}
	tokens[domain.ColorYellow][0] = domain.Token{ID: 0, Color: domain.ColorYellow, Position: 5, Status: domain.TokenActive, Steps: 5}

	mover := tokens[domain.ColorRed][0]
	result := ApplyMove(mover, 3, tokens, []domain.Color{domain.ColorRed}, false)

	assert.Equal(t, 5, result.UpdatedToken.Position)
	assert.Equal(t, domain.TokenActive, result.UpdatedToken.Status)
	assert.Len(t, result.Captured, 1)
	assert.Equal(t, domain.ColorYellow, result.Captured[0].Color)

	captured := ApplyCapture(tokens[domain.ColorYellow][0])
	assert.Equal(t, domain.PositionBase, captured.Position)
	assert.Equal(t, domain.TokenBase, captured.Status)
	assert.Equal(t, domain.StepsCapturedSentinel, captured.Steps)
}

func TestFindValidMoves_BlockadeExcludesLonePath(t *testing.T) {
	tokens := twoColorTokens()
	// green is an enemy from red's perspective; two green tokens blockade cell 10.
	tokens[domain.ColorYellow] = nil
	tokens[domain.ColorGreen] = []domain.Token{
		{ID: 0, Color: domain.ColorGreen, Position: 10, Status: domain.TokenActive, Steps: 10},
		{ID: 1, Color: domain.ColorGreen, Position: 10, Status: domain.TokenActive, Steps: 10},
	}
	tokens[domain.ColorRed][0] = domain.Token{ID: 0, Color: domain.ColorRed, Position: 6, Status: domain.TokenActive, Steps: 6}

	moves := FindValidMoves(tokens, 4, []domain.Color{domain.ColorRed})
	for _, m := range moves {
		assert.False(t, m.TokenID == 0 && m.Color == domain.ColorRed, "blockaded token must not be offered as a legal move")
	}
}

func TestFindValidMoves_ForcedStackRequiresEvenDice(t *testing.T) {
	tokens := twoColorTokens()
	tokens[domain.ColorYellow] = nil
	tokens[domain.ColorRed][0] = domain.Token{ID: 0, Color: domain.ColorRed, Position: 20, Status: domain.TokenActive, Steps: 20}
	tokens[domain.ColorRed][1] = domain.Token{ID: 1, Color: domain.ColorRed, Position: 20, Status: domain.TokenActive, Steps: 20}

	moves := FindValidMoves(tokens, 3, []domain.Color{domain.ColorRed})
	assert.Empty(t, moves)

	moves = FindValidMoves(tokens, 4, []domain.Color{domain.ColorRed})
	assert.Len(t, moves, 2)
}

func TestCheckWin(t *testing.T) {
	tokens := []domain.Token{
		{ID: 0, Color: domain.ColorRed, Status: domain.TokenHome, Position: 58},
		{ID: 1, Color: domain.ColorRed, Status: domain.TokenHome, Position: 58},
		{ID: 2, Color: domain.ColorRed, Status: domain.TokenHome, Position: 58},
		{ID: 3, Color: domain.ColorRed, Status: domain.TokenActive, Position: 10},
	}
	assert.False(t, CheckWin(tokens, domain.ColorRed))
	tokens[3].Status = domain.TokenHome
	tokens[3].Position = 58
	assert.True(t, CheckWin(tokens, domain.ColorRed))
}

func TestAdvanceTurn_SkipsFinishedSeats(t *testing.T) {
	seats := []string{"1", "2", "3"}
	winners := []domain.Winner{{SeatID: "2", Rank: 1}}

	next := AdvanceTurn(0, seats, winners, true)
	assert.Equal(t, 2, next, "seat 2 has finished and must be skipped")
}

func TestHomeEntry_Scenario(t *testing.T) {
	// Scenario 5 from the spec: green token at position 11, steps=49, dice=4.
	tokens := twoColorTokens()
	tokens[domain.ColorYellow] = nil
	tokens[domain.ColorGreen] = []domain.Token{
		{ID: 0, Color: domain.ColorGreen, Position: 11, Status: domain.TokenActive, Steps: 49},
	}
	tok := tokens[domain.ColorGreen][0]

	dist := distanceToArrow(domain.ColorGreen, 11)
	assert.Equal(t, 2, dist)
	assert.True(t, completesLap(49, dist))

	result := ApplyMove(tok, 4, tokens, []domain.Color{domain.ColorGreen}, false)
	assert.Equal(t, 53, result.UpdatedToken.Position)
	assert.Equal(t, domain.TokenSafe, result.UpdatedToken.Status)
}
