package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHomeChargeInquiry(t *testing.T) {
	assert.True(t, IsHomeChargeInquiry("how much extra for home collection?"))
	assert.True(t, IsHomeChargeInquiry("Is there a fee for home visit"))
	assert.False(t, IsHomeChargeInquiry("I want home collection"))
	assert.False(t, IsHomeChargeInquiry("how much is a CBC?"))
}

func TestIsSlotListRequest(t *testing.T) {
	assert.True(t, IsSlotListRequest("what slots are available?"))
	assert.True(t, IsSlotListRequest("show me available time slots"))
	assert.True(t, IsSlotListRequest("Which slot can I pick"))
	assert.False(t, IsSlotListRequest("10-12"))
	assert.False(t, IsSlotListRequest("I want to book CBC"))
}

func TestFastingQuery(t *testing.T) {
	subject, ok := FastingQuery("Does the lipid test require fasting?")
	assert.True(t, ok)
	assert.Equal(t, "LIPID", subject)

	subject, ok = FastingQuery("does serum calcium need fasting")
	assert.True(t, ok)
	assert.Equal(t, "serum calcium", subject)

	subject, ok = FastingQuery("do I need to fast?")
	assert.True(t, ok)
	assert.Empty(t, subject)

	_, ok = FastingQuery("I was fasting yesterday.")
	assert.False(t, ok)
}

func TestFirstIndex(t *testing.T) {
	n, ok := FirstIndex("I'd like number 2")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = FirstIndex("report 2 please, not 1")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = FirstIndex("the second one")
	assert.False(t, ok)
}

func TestApprovalTokens(t *testing.T) {
	for _, msg := range []string{"yes", "Yes please", "CONFIRM", "yep", "proceed", "ok", "Okay, book it"} {
		assert.True(t, IsAffirmative(msg), msg)
	}
	for _, msg := range []string{"sure", "yesterday", "not yet", "please confirm"} {
		assert.False(t, IsAffirmative(msg), msg)
	}
	for _, msg := range []string{"no", "No thanks", "cancel", "change the date", "edit"} {
		assert.True(t, IsDecline(msg), msg)
	}
	for _, msg := range []string{"yes", "nothing to change", "november 3"} {
		assert.False(t, IsDecline(msg), msg)
	}
}

func TestMentionedFields(t *testing.T) {
	assert.Equal(t, []Field{FieldTimeSlot, FieldDate}, MentionedFields("change the date and time"))
	assert.Equal(t, []Field{FieldAddress}, MentionedFields("wrong address"))
	assert.Equal(t, []Field{FieldTest}, MentionedFields("different test please"))
	assert.Empty(t, MentionedFields("no"))
}

func TestIsRestart(t *testing.T) {
	assert.True(t, IsRestart("let's start over"))
	assert.True(t, IsRestart("Restart"))
	assert.False(t, IsRestart("I want to start with CBC"))
}
