package main

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

// addCourse creates an active course.Course if its code is not taken.
func (cli *commandLine) addCourse(code, name, description string) error {
	now := time.Now().UTC()
	crs := course.Course{
		Code:        strings.ToUpper(core.CleanString(code)),
		Name:        core.CleanString(name),
		Description: core.CleanString(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	crs.SetActive(true)

	if _, err := cli.crsRepo.CreateCourse(context.Background(), crs); err != nil {
		return err
	}
	return nil
}
