package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testGreeting = "Thank you for your question!"
	testFooter   = "Anything else I can help you with today?"
	testUnknown  = "I'm sorry, I don't have that information."
)

func TestStripBullets(t *testing.T) {
	assert.Equal(t, "one two three", StripBullets("- one\n- two\nthree"))
	assert.Equal(t, "a -b", StripBullets("  a  \n-b"))
	assert.Equal(t, "", StripBullets(""))
}

func TestFormat_GreetingInsertion(t *testing.T) {
	f := NewAnswerFormatter(testGreeting, testFooter)

	out := f.Format("The sky is blue.")
	paragraphs := strings.Split(out, "\n\n")

	assert.Equal(t, []string{testGreeting, "The sky is blue.", testFooter}, paragraphs)
	assert.True(t, strings.HasPrefix(paragraphs[0], testGreeting))
	assert.Equal(t, testFooter, paragraphs[len(paragraphs)-1])
}

func TestFormat_EmptyInput(t *testing.T) {
	f := NewAnswerFormatter(testGreeting, testFooter)

	assert.Equal(t, testGreeting+"\n\n"+testFooter, f.Format(""))
	assert.Equal(t, testGreeting+"\n\n"+testFooter, f.Format("   \n- \n"))
}

func TestFormat_FooterNeverDuplicated(t *testing.T) {
	f := NewAnswerFormatter(testGreeting, testFooter)

	inputs := []string{
		"Fees vary by year group.",
		"Fees vary by year group. " + testFooter,
		testGreeting + " Fees vary. " + testFooter + "\n" + testFooter + "\n" + testFooter,
		testFooter,
	}
	for _, in := range inputs {
		once := f.Format(in)
		twice := f.Format(once)

		assert.Equal(t, 1, strings.Count(once, testFooter), in)
		assert.Equal(t, 1, strings.Count(twice, testFooter), in)
		assert.True(t, strings.HasSuffix(once, testFooter))
	}
}

func TestFormat_KeepsExistingGreeting(t *testing.T) {
	f := NewAnswerFormatter(testGreeting, testFooter)

	out := f.Format("Thank you for your question. Lunch is served at noon.")

	assert.Equal(t, 1, strings.Count(out, "Thank you for your question"))
	assert.True(t, strings.HasPrefix(out, "Thank you for your question. Lunch is served at noon."))
}

func TestFormat_ThreeSentenceParagraphs(t *testing.T) {
	f := NewAnswerFormatter(testGreeting, testFooter)

	out := f.Format("- A one.\n- B two.\nC three. D four.")

	assert.Equal(t, strings.Join([]string{
		testGreeting,
		"A one. B two. C three.",
		"D four.",
		testFooter,
	}, "\n\n"), out)
}

func TestFormat_QuestionClosesParagraph(t *testing.T) {
	f := NewAnswerFormatter(testGreeting, testFooter)

	out := f.Format("Would you like a tour?. Our open mornings run every month.")
	paragraphs := strings.Split(out, "\n\n")

	assert.Len(t, paragraphs, 4)
	assert.True(t, strings.HasPrefix(paragraphs[1], "Would you like a tour?"))
	assert.Equal(t, "Our open mornings run every month.", paragraphs[2])
}
