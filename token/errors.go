package token

import "fmt"

// Code is the stable numeric identity of a diagnostic. Codes are grouped by
// stage: 0x1xxx syntax, 0x2xxx lowering, 0x3xxx templates.
type Code int

const (
	ErrUnexpectedToken Code = 0x1000
	ErrExpectedRParen  Code = 0x1001
	ErrUnexpectedEOF   Code = 0x1002
	ErrExpectedRBrack  Code = 0x1003
	ErrExpectedBlock   Code = 0x1004
	ErrBadNumber       Code = 0x1005
	ErrExpectedIdent   Code = 0x1006
	ErrBadTypeSize     Code = 0x1007
	ErrCommandEnd      Code = 0x1010

	ErrProtoNoArrow     Code = 0x1101
	ErrProtoNoName      Code = 0x1102
	ErrProtoNoArrow2    Code = 0x1103
	ErrProtoNoOutputs   Code = 0x1104
	ErrProtoArgName     Code = 0x1105
	ErrProtoVecAndArray Code = 0x1106

	ErrUnknownNode Code = 0x2000

	ErrUnresolved      Code = 0x2101
	ErrUnknownVariable Code = 0x2102
	ErrNoValue         Code = 0x2103
	ErrStoreNoValue    Code = 0x2104

	ErrIndexType     Code = 0x2201
	ErrNotIndexable  Code = 0x2202
	ErrIndexBounds   Code = 0x2203
	ErrContainerElem Code = 0x2204

	ErrRedefinition  Code = 0x2401
	ErrArgCount      Code = 0x2402
	ErrVerify        Code = 0x2403
	ErrReturnCount   Code = 0x2404
	ErrReturnType    Code = 0x2405
	ErrNoReturnValue Code = 0x2406
	ErrProtoConflict Code = 0x2407

	ErrCommandNotCall    Code = 0x2501
	ErrInsufficientArgs  Code = 0x2503
	ErrArgType           Code = 0x2504
	ErrCondType          Code = 0x2601
	ErrBranchTypes       Code = 0x2602
	ErrNoEnclosingFunc   Code = 0x2603
	ErrOperandTypes      Code = 0x2701
	ErrVectorSize        Code = 0x2702
	ErrVectorScalar      Code = 0x2703
	ErrBoolOperator      Code = 0x2704
	ErrUnknownOperator   Code = 0x2705
	ErrTemplateRedefined Code = 0x3001
	ErrUnknownType       Code = 0x3003
)

type CompileError struct {
	Token Token
	Code  Code
	Msg   string
}

func (ce *CompileError) Error() string {
	if ce.Token.Line == 0 {
		return fmt.Sprintf("Error %#x: %s", int(ce.Code), ce.Msg)
	}
	return fmt.Sprintf("Error %#x: %s (%s)", int(ce.Code), ce.Msg, ce.Token.Pos())
}

// Errorf builds a CompileError positioned at tok.
func Errorf(tok Token, code Code, format string, args ...any) *CompileError {
	return &CompileError{Token: tok, Code: code, Msg: fmt.Sprintf(format, args...)}
}
