package git

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bashhack/gitupdate/internal/constants"
	"github.com/bashhack/gitupdate/internal/logger"
)

// UserInteractor defines an interface for interacting with the user
type UserInteractor interface {
	// PromptYesNo asks the user a yes/no question and returns their response
	PromptYesNo(question string) bool
}

// DefaultInteractor is the standard implementation of UserInteractor
// that reads from stdin and writes to stdout
type DefaultInteractor struct {
	Reader io.Reader
	Writer io.Writer
	Logger logger.Logger

	// Done, when set, aborts a pending prompt with a "no" once it is closed.
	// An interrupted session then rolls back instead of waiting for input.
	// The read of an aborted prompt is left pending, so once Done is closed
	// every later prompt answers "no" without reading.
	Done <-chan struct{}

	buffered *bufio.Reader
}

// NewDefaultInteractor creates a new DefaultInteractor
func NewDefaultInteractor(logger logger.Logger) *DefaultInteractor {
	return &DefaultInteractor{
		Reader: os.Stdin,
		Writer: os.Stdout,
		Logger: logger,
	}
}

// PromptYesNo asks the user a yes/no question and returns their response.
// Only an exact affirmative answer counts as yes; anything else, including a
// read error or EOF, is no.
func (i *DefaultInteractor) PromptYesNo(question string) bool {
	if i.canceled() {
		return false
	}

	if i.Logger != nil {
		i.Logger.StatusMessage("%s [y/N]: ", question)
	} else if i.Writer != nil {
		_, _ = fmt.Fprintf(i.Writer, "%s [y/N]: ", question)
	}

	if i.buffered == nil {
		i.buffered = bufio.NewReader(i.Reader)
	}

	if i.Done == nil {
		return i.readAnswer()
	}

	answers := make(chan bool, 1)
	go func() {
		answers <- i.readAnswer()
	}()

	select {
	case answer := <-answers:
		return answer
	case <-i.Done:
		return false
	}
}

func (i *DefaultInteractor) canceled() bool {
	if i.Done == nil {
		return false
	}
	select {
	case <-i.Done:
		return true
	default:
		return false
	}
}

func (i *DefaultInteractor) readAnswer() bool {
	answer, err := i.buffered.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return IsAffirmative(answer)
}

// IsAffirmative reports whether answer is one of the accepted "yes" tokens.
func IsAffirmative(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	for _, token := range constants.AffirmativeAnswers {
		if answer == token {
			return true
		}
	}
	return false
}

// NonInteractiveInteractor declines every prompt, which keeps unattended
// updates fail-closed: divergence and breaking changes both roll back.
type NonInteractiveInteractor struct{}

// NewNonInteractiveInteractor creates a new NonInteractiveInteractor
func NewNonInteractiveInteractor() *NonInteractiveInteractor {
	return &NonInteractiveInteractor{}
}

// PromptYesNo always returns false without prompting
func (i *NonInteractiveInteractor) PromptYesNo(question string) bool {
	return false
}
