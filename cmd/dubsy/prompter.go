package main

import (
	"github.com/AlecAivazis/survey/v2"
)

// prompter abstracts interactive input so config init can be tested.
type prompter interface {
	Input(message, defaultValue string) (string, error)
	Password(message string) (string, error)
	Select(message string, options []string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(message, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{Message: message, Default: defaultValue}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (surveyPrompter) Password(message string) (string, error) {
	result := ""
	if err := survey.AskOne(&survey.Password{Message: message}, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (surveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := defaultValue
	prompt := &survey.Select{Message: message, Options: options, Default: defaultValue}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (surveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{Message: message, Default: defaultValue}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

var defaultPrompter prompter = surveyPrompter{}
