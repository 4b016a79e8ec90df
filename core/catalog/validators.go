package catalog

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fightlab/core"
)

var (
	questionTypeTag  = "question_type"
	questionTypeText = "must be one of multiple_choice, true_false or short_answer"

	optionsRequiredTag  = "options_required"
	optionsRequiredText = "at least one option is required"

	oneCorrectTag  = "one_correct"
	oneCorrectText = "exactly one option must be marked correct"

	answersRequiredTag  = "answers_required"
	answersRequiredText = "at least one accepted answer is required"

	noOptionsTag  = "no_options"
	noOptionsText = "short answer questions do not take options"

	noAnswersTag  = "no_answers"
	noAnswersText = "only short answer questions take accepted answers"
)

// InitValidators registers the catalog validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)

	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, optionsRequiredTag, optionsRequiredText)
	core.RegisterCustomTranslation(validate, translator, oneCorrectTag, oneCorrectText)
	core.RegisterCustomTranslation(validate, translator, answersRequiredTag, answersRequiredText)
	core.RegisterCustomTranslation(validate, translator, noOptionsTag, noOptionsText)
	core.RegisterCustomTranslation(validate, translator, noAnswersTag, noAnswersText)
}

func questionTypeValidation(fl validator.FieldLevel) bool {
	return QuestionType(fl.Field().String()).IsValid()
}

// questionStructValidation checks that the answer key matches the question type:
// - multiple_choice, true_false: at least one option, exactly one correct, no accepted answers
// - short_answer: at least one accepted answer, no options
func questionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok || !nq.Type.IsValid() {
		return
	}

	if nq.Type.HasOptions() {
		if len(nq.Options) == 0 {
			sl.ReportError(nq.Options, "options", "Options", optionsRequiredTag, "")
			return
		}
		var correct int
		for _, opt := range nq.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			sl.ReportError(nq.Options, "options", "Options", oneCorrectTag, "")
		}
		if len(nq.Answers) > 0 {
			sl.ReportError(nq.Answers, "answers", "Answers", noAnswersTag, "")
		}
		return
	}

	if len(nq.Answers) == 0 {
		sl.ReportError(nq.Answers, "answers", "Answers", answersRequiredTag, "")
	}
	if len(nq.Options) > 0 {
		sl.ReportError(nq.Options, "options", "Options", noOptionsTag, "")
	}
}
