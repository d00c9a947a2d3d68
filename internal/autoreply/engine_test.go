package autoreply

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmcheckout/internal/entities"
)

func allScripts() map[entities.Stage]string {
	return map[entities.Stage]string{
		entities.StagePitch:     "Hey! {{product}} is what you need. Want in?",
		entities.StageQualify:   "Love it. {{product}} is perfect if you are starting out.",
		entities.StageCheckout:  "It's {{price}}. Grab it here: https://shop.example/{{keyword}}",
		entities.StageDelivery:  "Thank you! Your {{product}} is on its way.",
		entities.StageObjection: "Totally get it. {{product}} is {{price}} and you keep it forever.",
	}
}

// thread replays the engine over a sequence of inbound messages the same way
// the conversation service does and returns the reply for each turn.
type thread struct {
	history []entities.Message
	ctx     FlowContext
}

func newThread(scripts map[entities.Stage]string) *thread {
	return &thread{ctx: FlowContext{
		Keyword: "GUIDE",
		Scripts: scripts,
		Product: Product{Title: "Creator Guide", PriceCents: 2900},
	}}
}

func (th *thread) send(text string) (Reply, bool) {
	th.history = append(th.history, entities.Message{Role: entities.RoleInbound, Text: text})
	fc := th.ctx
	fc.History = th.history
	fc.LatestUserMessage = text
	reply, ok := NextAutoReply(fc)
	if ok {
		th.history = append(th.history, entities.Message{Role: entities.RoleOutbound, Text: reply.Text, Stage: reply.Stage})
	}
	return reply, ok
}

func TestEndToEndScenario(t *testing.T) {
	th := newThread(allScripts())

	reply, ok := th.send("tell me about GUIDE")
	require.True(t, ok)
	assert.Equal(t, entities.StagePitch, reply.Stage)
	assert.Contains(t, reply.Text, "Creator Guide")

	reply, ok = th.send("yes, interested")
	require.True(t, ok)
	assert.Equal(t, entities.StageQualify, reply.Stage)

	reply, ok = th.send("how much is it?")
	require.True(t, ok)
	assert.Equal(t, entities.StageCheckout, reply.Stage)
	assert.Contains(t, reply.Text, "$29.00")

	reply, ok = th.send("just paid, done!")
	require.True(t, ok)
	assert.Equal(t, entities.StageDelivery, reply.Stage)

	_, ok = th.send("thanks!")
	assert.False(t, ok)
}

func TestPitchFiresOnlyOnce(t *testing.T) {
	th := newThread(allScripts())
	_, ok := th.send("GUIDE please")
	require.True(t, ok)

	_, ok = th.send("GUIDE again")
	assert.False(t, ok)
}

func TestKeywordIsCaseInsensitive(t *testing.T) {
	th := newThread(allScripts())
	reply, ok := th.send("send me the guide")
	require.True(t, ok)
	assert.Equal(t, entities.StagePitch, reply.Stage)
}

func TestStagesAreNeverSkipped(t *testing.T) {
	cases := []string{"yes, interested", "how much is it?", "just paid, done!"}
	for _, text := range cases {
		th := newThread(allScripts())
		_, ok := th.send(text)
		assert.False(t, ok, text)
	}

	th := newThread(allScripts())
	_, ok := th.send("GUIDE")
	require.True(t, ok)
	_, ok = th.send("paid")
	assert.False(t, ok, "delivery cannot fire before qualify and checkout")
}

func TestObjectionFiresOnce(t *testing.T) {
	th := newThread(allScripts())
	_, ok := th.send("GUIDE")
	require.True(t, ok)

	reply, ok := th.send("it's kind of expensive")
	require.True(t, ok)
	assert.Equal(t, entities.StageObjection, reply.Stage)
	assert.Contains(t, reply.Text, "$29.00")

	_, ok = th.send("it's kind of expensive")
	assert.False(t, ok)
}

func TestObjectionBeforePitch(t *testing.T) {
	th := newThread(allScripts())
	reply, ok := th.send("maybe later")
	require.True(t, ok)
	assert.Equal(t, entities.StageObjection, reply.Stage)
}

func TestPitchWinsOverObjectionInSameMessage(t *testing.T) {
	th := newThread(allScripts())
	reply, ok := th.send("not sure about GUIDE")
	require.True(t, ok)
	assert.Equal(t, entities.StagePitch, reply.Stage)

	reply, ok = th.send("not sure about GUIDE")
	require.True(t, ok)
	assert.Equal(t, entities.StageObjection, reply.Stage)
}

func TestObjectionInterruptsThenFlowResumes(t *testing.T) {
	th := newThread(allScripts())
	_, _ = th.send("GUIDE")
	reply, ok := th.send("hmm, maybe")
	require.True(t, ok)
	assert.Equal(t, entities.StageObjection, reply.Stage)

	reply, ok = th.send("ok yes I'm ready")
	require.True(t, ok)
	assert.Equal(t, entities.StageQualify, reply.Stage)
}

func TestCheckoutAcceptsAffirmative(t *testing.T) {
	th := newThread(allScripts())
	_, _ = th.send("GUIDE")
	_, _ = th.send("yes")
	reply, ok := th.send("sounds good")
	require.True(t, ok)
	assert.Equal(t, entities.StageCheckout, reply.Stage)
}

func TestMissingScriptSuppressesStage(t *testing.T) {
	scripts := allScripts()
	delete(scripts, entities.StagePitch)
	th := newThread(scripts)
	_, ok := th.send("GUIDE")
	assert.False(t, ok)

	scripts = allScripts()
	delete(scripts, entities.StageQualify)
	th = newThread(scripts)
	_, ok = th.send("GUIDE")
	require.True(t, ok)
	_, ok = th.send("yes")
	assert.False(t, ok)
}

func TestMissingPitchScriptFallsThroughToObjection(t *testing.T) {
	scripts := allScripts()
	delete(scripts, entities.StagePitch)
	th := newThread(scripts)
	reply, ok := th.send("GUIDE sounds expensive")
	require.True(t, ok)
	assert.Equal(t, entities.StageObjection, reply.Stage)
}

func TestDegenerateInputs(t *testing.T) {
	_, ok := NextAutoReply(FlowContext{})
	assert.False(t, ok)

	_, ok = NextAutoReply(FlowContext{LatestUserMessage: "   ", Keyword: "GUIDE", Scripts: allScripts()})
	assert.False(t, ok)

	_, ok = NextAutoReply(FlowContext{LatestUserMessage: "anything", Scripts: allScripts()})
	assert.False(t, ok, "empty keyword never triggers pitch")

	_, ok = NextAutoReply(FlowContext{LatestUserMessage: "GUIDE", Keyword: "GUIDE"})
	assert.False(t, ok, "no scripts configured")
}

func TestInboundStageTagsAreIgnored(t *testing.T) {
	history := []entities.Message{
		{Role: entities.RoleInbound, Text: "GUIDE", Stage: entities.StagePitch},
	}
	reply, ok := NextAutoReply(FlowContext{
		History:           history,
		LatestUserMessage: "GUIDE",
		Keyword:           "GUIDE",
		Scripts:           allScripts(),
	})
	require.True(t, ok)
	assert.Equal(t, entities.StagePitch, reply.Stage)
}

func TestManualOutboundDoesNotCountAsStage(t *testing.T) {
	history := []entities.Message{
		{Role: entities.RoleInbound, Text: "hi"},
		{Role: entities.RoleOutbound, Text: "hello from the creator"},
	}
	reply, ok := NextAutoReply(FlowContext{
		History:           history,
		LatestUserMessage: "what is GUIDE?",
		Keyword:           "guide",
		Scripts:           allScripts(),
		Product:           Product{Title: "Creator Guide", PriceCents: 2900},
	})
	require.True(t, ok)
	assert.Equal(t, entities.StagePitch, reply.Stage)
	assert.Equal(t, "Hey! Creator Guide is what you need. Want in?", reply.Text)
}

func TestKeywordSetsAreLowerCase(t *testing.T) {
	for _, set := range [][]string{ObjectionKeywords, AffirmativeKeywords, CheckoutKeywords, PurchaseKeywords} {
		for _, k := range set {
			assert.Equal(t, strings.ToLower(k), k)
			assert.NotEmpty(t, strings.TrimSpace(k))
		}
	}
}

func TestEveryKeywordTriggersItsStage(t *testing.T) {
	for _, k := range ObjectionKeywords {
		th := newThread(allScripts())
		reply, ok := th.send(k)
		require.True(t, ok, k)
		assert.Equal(t, entities.StageObjection, reply.Stage, k)
	}
	for _, k := range AffirmativeKeywords {
		th := newThread(allScripts())
		th.history = []entities.Message{{Role: entities.RoleOutbound, Stage: entities.StagePitch}}
		reply, ok := th.send(k)
		require.True(t, ok, k)
		assert.Equal(t, entities.StageQualify, reply.Stage, k)
	}
	for _, k := range CheckoutKeywords {
		th := newThread(allScripts())
		th.history = []entities.Message{
			{Role: entities.RoleOutbound, Stage: entities.StagePitch},
			{Role: entities.RoleOutbound, Stage: entities.StageQualify},
		}
		reply, ok := th.send(k)
		require.True(t, ok, k)
		assert.Equal(t, entities.StageCheckout, reply.Stage, k)
	}
	for _, k := range PurchaseKeywords {
		th := newThread(allScripts())
		th.history = []entities.Message{
			{Role: entities.RoleOutbound, Stage: entities.StagePitch},
			{Role: entities.RoleOutbound, Stage: entities.StageQualify},
			{Role: entities.RoleOutbound, Stage: entities.StageCheckout},
		}
		reply, ok := th.send(k)
		require.True(t, ok, k)
		assert.Equal(t, entities.StageDelivery, reply.Stage, k)
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$29.00", FormatPrice(2900))
	assert.Equal(t, "$0.99", FormatPrice(99))
	assert.Equal(t, "$0.00", FormatPrice(0))
	assert.Equal(t, "$19.05", FormatPrice(1905))
	assert.Equal(t, "-$5.50", FormatPrice(-550))
	assert.Equal(t, "$92,233,720,368,547,758.07", FormatPrice(math.MaxInt64))
	assert.Equal(t, "-$92,233,720,368,547,758.08", FormatPrice(math.MinInt64))
}
