package main

import (
	"context"
	"errors"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var errNotTeacher = errors.New("user is not a teacher")

// assignTeacher assigns an existing teacher to an existing course.
func (cli *commandLine) assignTeacher(code, uname string) error {
	ctx := context.Background()

	crs, err := cli.crsRepo.GetCourse(ctx, course.GetFilter{Code: strings.ToUpper(core.CleanString(code))})
	if err != nil {
		return err
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
	if err != nil {
		return err
	}
	if !usr.IsTeacher() {
		return errNotTeacher
	}
	return cli.crsRepo.AssignTeacher(ctx, crs.ID, usr.ID)
}
