package domain

import "github.com/victornm/trivia/internal/errors"

// Reasons identify domain failures independent of the message attached to them.
const (
	ReasonInvalidCategory       = "INVALID_CATEGORY"
	ReasonInvalidCount          = "INVALID_COUNT"
	ReasonInvalidAnswerIndex    = "INVALID_ANSWER_INDEX"
	ReasonInvalidTimeSpent      = "INVALID_TIME_SPENT"
	ReasonSessionNotFound       = "SESSION_NOT_FOUND"
	ReasonCategoryNotFound      = "CATEGORY_NOT_FOUND"
	ReasonNotOwner              = "NOT_OWNER"
	ReasonSessionNotActive      = "SESSION_NOT_ACTIVE"
	ReasonQuestionNotInSession  = "QUESTION_NOT_IN_SESSION"
	ReasonAlreadyAnswered       = "ALREADY_ANSWERED"
	ReasonDuplicateAggregation  = "DUPLICATE_AGGREGATION"
	ReasonInsufficientQuestions = "INSUFFICIENT_QUESTIONS"
	ReasonConcurrentUpdate      = "CONCURRENT_UPDATE"
)

var (
	// Input validation, rejected before any mutation.
	ErrInvalidCategory    = errors.New(errors.CodeInvalidArgument, errors.WithReason(ReasonInvalidCategory), errors.WithMessagef("invalid category"))
	ErrInvalidCount       = errors.New(errors.CodeInvalidArgument, errors.WithReason(ReasonInvalidCount), errors.WithMessagef("invalid question count"))
	ErrInvalidAnswerIndex = errors.New(errors.CodeInvalidArgument, errors.WithReason(ReasonInvalidAnswerIndex), errors.WithMessagef("invalid answer index"))
	ErrInvalidTimeSpent   = errors.New(errors.CodeInvalidArgument, errors.WithReason(ReasonInvalidTimeSpent), errors.WithMessagef("invalid time spent"))

	// Not found.
	ErrSessionNotFound  = errors.New(errors.CodeNotFound, errors.WithReason(ReasonSessionNotFound), errors.WithMessagef("session not found"))
	ErrCategoryNotFound = errors.New(errors.CodeNotFound, errors.WithReason(ReasonCategoryNotFound), errors.WithMessagef("category not found"))

	// ErrNotOwner does not confirm that the session exists under another account.
	ErrNotOwner = errors.New(errors.CodePermissionDenied, errors.WithReason(ReasonNotOwner), errors.WithMessagef("session is not accessible"))

	// State conflicts.
	ErrSessionNotActive     = errors.New(errors.CodeFailedPrecondition, errors.WithReason(ReasonSessionNotActive), errors.WithMessagef("session is not active"))
	ErrQuestionNotInSession = errors.New(errors.CodeFailedPrecondition, errors.WithReason(ReasonQuestionNotInSession), errors.WithMessagef("question is not part of the session"))
	ErrAlreadyAnswered      = errors.New(errors.CodeAlreadyExists, errors.WithReason(ReasonAlreadyAnswered), errors.WithMessagef("question already answered"))
	ErrDuplicateAggregation = errors.New(errors.CodeAlreadyExists, errors.WithReason(ReasonDuplicateAggregation), errors.WithMessagef("session already aggregated"))

	// Resources.
	ErrInsufficientQuestions = errors.New(errors.CodeResourceExhausted, errors.WithReason(ReasonInsufficientQuestions), errors.WithMessagef("not enough questions"))

	// ErrConcurrentUpdate is returned when an optimistic update lost the race too many times.
	ErrConcurrentUpdate = errors.New(errors.CodeAborted, errors.WithReason(ReasonConcurrentUpdate), errors.WithMessagef("session is being updated concurrently, retry"))
)
