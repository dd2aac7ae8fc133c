package votally_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/votally"
)

var _ = Describe("Ballots", func() {

	Describe("ChoiceSet", func() {

		It("should trim and keep the declared order", func() {
			choices, err := NewChoiceSet(" Rust ", "Go", "Zig")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(choices).Should(Equal(ChoiceSet{"Rust", "Go", "Zig"}))
			Ω(choices.Index("Zig")).Should(Equal(2))
			Ω(choices.Contains("C")).Should(BeFalse())
			Ω(choices.String()).Should(Equal("Rust, Go, Zig"))
		})

		DescribeTable("invalid choices",
			func(expected error, names ...string) {
				_, err := NewChoiceSet(names...)
				Ω(err).Should(MatchError(expected))
			},
			Entry("no choices", ErrTooFewChoices),
			Entry("a single choice", ErrTooFewChoices, "A"),
			Entry("a repeated choice", ErrDuplicateChoice, "A", "B", "A"),
			Entry("an empty choice", ErrInvalidChoice, "A", "  "),
			Entry("a comma in a choice", ErrInvalidChoice, "A", "B,C"),
			Entry("a newline in a choice", ErrInvalidChoice, "A", "B\nC"),
			Entry("an error prefix", ErrInvalidChoice, "A", "!B"),
			Entry("a choice that is not UTF-8", ErrInvalidChoice, "A", "B\xff"),
		)

	})

	Describe("BallotForm", func() {

		It("should serialize by name", func() {
			data, err := json.Marshal(Approved)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(string(data)).Should(Equal(`"Approved"`))

			var form BallotForm
			Ω(json.Unmarshal([]byte(`"uninominal"`), &form)).Should(Succeed())
			Ω(form).Should(Equal(Uninominal))

			Ω(json.Unmarshal([]byte(`"ranked"`), &form)).ShouldNot(Succeed())
		})

		It("should name unknown forms", func() {
			Ω(BallotForm(9).String()).Should(Equal("Unknown"))
		})

	})

	Describe("ParseBallot", func() {

		It("should parse a uninominal ballot", func() {
			ballot, err := ParseBallot(Uninominal, "  Go \r")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(ballot).Should(Equal(UninominalBallot("Go")))
			Ω(ballot.Selections()).Should(Equal([]string{"Go"}))
		})

		It("should parse an approved ballot", func() {
			ballot, err := ParseBallot(Approved, "Go, Rust")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(ballot).Should(Equal(ApprovedBallot{"Go", "Rust"}))
			Ω(ballot.String()).Should(Equal("Go,Rust"))
		})

		DescribeTable("malformed ballot lines",
			func(form BallotForm, line string) {
				_, err := ParseBallot(form, line)
				Ω(err).Should(MatchError(&InvalidBallotError{Reason: MalformedInput}))
			},
			Entry("empty uninominal", Uninominal, ""),
			Entry("whitespace uninominal", Uninominal, "   "),
			Entry("several uninominal choices", Uninominal, "A,B"),
			Entry("empty approval", Approved, ""),
			Entry("empty approval field", Approved, "A,,B"),
			Entry("trailing approval comma", Approved, "A,"),
			Entry("uninominal not UTF-8", Uninominal, "B\xff"),
			Entry("approval not UTF-8", Approved, "A,B\xff"),
		)

	})

	Describe("ValidateBallot", func() {

		choices := ChoiceSet{"A", "B", "C"}

		It("should accept valid ballots", func() {
			Ω(ValidateBallot(Uninominal, choices, UninominalBallot("B"))).Should(Succeed())
			Ω(ValidateBallot(Approved, choices, ApprovedBallot{"C", "A"})).Should(Succeed())
		})

		It("should reject a ballot of the wrong form", func() {
			err := ValidateBallot(Approved, choices, UninominalBallot("B"))
			Ω(err).Should(MatchError(&InvalidBallotError{Reason: MalformedInput}))
			Ω(ValidateBallot(Uninominal, choices, nil)).ShouldNot(Succeed())
		})

		It("should report the offending choice", func() {
			err := ValidateBallot(Approved, choices, ApprovedBallot{"A", "D"})
			Ω(err).Should(MatchError(&InvalidBallotError{Reason: UnknownCandidate}))
			Ω(err.Error()).Should(Equal(`invalid ballot: unknown candidate "D"`))

			err = ValidateBallot(Approved, choices, ApprovedBallot{"B", "B"})
			Ω(err).Should(MatchError(&InvalidBallotError{Reason: DuplicateSelection, Choice: "B"}))
		})

	})

	Describe("NewBallot", func() {

		It("should create ballots of each form", func() {
			ballot, err := NewBallot(Uninominal, "A")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(ballot).Should(Equal(UninominalBallot("A")))

			ballot, err = NewBallot(Approved, "A", " B")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(ballot).Should(Equal(ApprovedBallot{"A", "B"}))
		})

		It("should require exactly one uninominal choice", func() {
			_, err := NewBallot(Uninominal, "A", "B")
			Ω(err).Should(MatchError(&InvalidBallotError{Reason: MalformedInput}))

			_, err = NewBallot(Uninominal)
			Ω(err).Should(HaveOccurred())

			_, err = NewBallot(Approved)
			Ω(err).Should(HaveOccurred())
		})

	})

})
