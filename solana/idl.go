package dareme_protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

type IDL struct {
	Version      string              `json:"version"`
	Name         string              `json:"name"`
	Address      string              `json:"address"`
	Instructions []IDLInstruction    `json:"instructions"`
	Accounts     []IDLTypeDefinition `json:"accounts"`
	Events       []IDLEvent          `json:"events"`
	Types        []IDLTypeDefinition `json:"types"`
	Errors       []IDLError          `json:"errors"`
}

type IDLInstruction struct {
	Name          string       `json:"name"`
	Discriminator []byte       `json:"discriminator"`
	Args          []IDLField   `json:"args"`
	Accounts      []IDLAccount `json:"accounts"`
}

type IDLEvent struct {
	Name          string     `json:"name"`
	Discriminator []byte     `json:"discriminator"`
	Fields        []IDLField `json:"fields"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type IDLAccount struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

type IDLVariant struct {
	Name string `json:"name"`
}

type IDLTypeDefinition struct {
	Name          string `json:"name"`
	Discriminator []byte `json:"discriminator,omitempty"`
	Type          struct {
		Kind     string       `json:"kind"`
		Fields   []IDLField   `json:"fields,omitempty"`
		Variants []IDLVariant `json:"variants,omitempty"`
	} `json:"type"`
}

type IDLError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

func ParseIDL(idlBytes []byte) (*IDL, error) {
	var idl IDL
	err := json.Unmarshal(idlBytes, &idl)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling IDL JSON: %w", err)
	}
	return &idl, nil
}

var (
	idlOnce sync.Once
	idlData *IDL
	idlErr  error
)

// LoadIDL parses the embedded program IDL once.
func LoadIDL() (*IDL, error) {
	idlOnce.Do(func() {
		idlData, idlErr = ParseIDL([]byte(idlJSON))
	})
	return idlData, idlErr
}

// RawIDL returns the embedded IDL document.
func RawIDL() []byte {
	return []byte(idlJSON)
}

// Instruction returns the IDL entry whose discriminator matches disc.
func (idl *IDL) Instruction(disc [8]byte) (*IDLInstruction, bool) {
	for i := range idl.Instructions {
		if bytes.Equal(idl.Instructions[i].Discriminator, disc[:]) {
			return &idl.Instructions[i], true
		}
	}
	return nil, false
}

// Error returns the IDL entry for a custom error code.
func (idl *IDL) Error(code int) (*IDLError, bool) {
	for i := range idl.Errors {
		if idl.Errors[i].Code == code {
			return &idl.Errors[i], true
		}
	}
	return nil, false
}

const idlJSON = `
{
  "version": "0.1.0",
  "name": "dareme",
  "address": "8Vg3ximsFxoaEveSLQNe49i8tkSaeNubnxa54ypwXiD8",
  "instructions": [
    {
      "name": "create_dare",
      "discriminator": [165,248,7,27,99,187,25,198],
      "accounts": [
        {"name": "challenger", "isMut": true, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false},
        {"name": "vault", "isMut": true, "isSigner": false},
        {"name": "challenger_stats", "isMut": true, "isSigner": false},
        {"name": "system_program", "isMut": false, "isSigner": false}
      ],
      "args": [
        {"name": "dare_id", "type": "u64"},
        {"name": "description_hash", "type": {"array": ["u8", 32]}},
        {"name": "amount", "type": "u64"},
        {"name": "deadline", "type": "i64"},
        {"name": "dare_type", "type": {"defined": "DareType"}},
        {"name": "winner_selection", "type": {"defined": "WinnerSelection"}},
        {"name": "target_daree", "type": "publicKey"}
      ]
    },
    {
      "name": "accept_dare",
      "discriminator": [238,123,72,103,159,234,210,83],
      "accounts": [
        {"name": "daree", "isMut": true, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false},
        {"name": "daree_stats", "isMut": true, "isSigner": false},
        {"name": "system_program", "isMut": false, "isSigner": false}
      ],
      "args": []
    },
    {
      "name": "submit_proof",
      "discriminator": [54,241,46,84,4,212,46,94],
      "accounts": [
        {"name": "submitter", "isMut": true, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false},
        {"name": "submitter_stats", "isMut": true, "isSigner": false},
        {"name": "system_program", "isMut": false, "isSigner": false}
      ],
      "args": [
        {"name": "proof_hash", "type": {"array": ["u8", 32]}}
      ]
    },
    {
      "name": "approve_dare",
      "discriminator": [75,217,114,212,39,128,254,190],
      "accounts": [
        {"name": "challenger", "isMut": true, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false},
        {"name": "vault", "isMut": true, "isSigner": false},
        {"name": "daree", "isMut": true, "isSigner": false},
        {"name": "daree_stats", "isMut": true, "isSigner": false},
        {"name": "system_program", "isMut": false, "isSigner": false}
      ],
      "args": []
    },
    {
      "name": "reject_dare",
      "discriminator": [24,236,243,244,209,25,109,91],
      "accounts": [
        {"name": "challenger", "isMut": false, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false}
      ],
      "args": []
    },
    {
      "name": "cancel_dare",
      "discriminator": [170,254,168,239,96,236,53,126],
      "accounts": [
        {"name": "challenger", "isMut": true, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false},
        {"name": "vault", "isMut": true, "isSigner": false},
        {"name": "challenger_stats", "isMut": true, "isSigner": false},
        {"name": "system_program", "isMut": false, "isSigner": false}
      ],
      "args": []
    },
    {
      "name": "refuse_dare",
      "discriminator": [29,81,37,218,38,163,183,9],
      "accounts": [
        {"name": "daree", "isMut": true, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false},
        {"name": "vault", "isMut": true, "isSigner": false},
        {"name": "challenger", "isMut": true, "isSigner": false},
        {"name": "challenger_stats", "isMut": true, "isSigner": false},
        {"name": "system_program", "isMut": false, "isSigner": false}
      ],
      "args": []
    },
    {
      "name": "expire_dare",
      "discriminator": [250,215,157,210,10,18,124,61],
      "accounts": [
        {"name": "caller", "isMut": true, "isSigner": true},
        {"name": "dare", "isMut": true, "isSigner": false},
        {"name": "vault", "isMut": true, "isSigner": false},
        {"name": "challenger", "isMut": true, "isSigner": false},
        {"name": "challenger_stats", "isMut": true, "isSigner": false},
        {"name": "system_program", "isMut": false, "isSigner": false}
      ],
      "args": []
    }
  ],
  "accounts": [
    {
      "name": "Dare",
      "discriminator": [99,27,218,204,253,181,17,54],
      "type": {
        "kind": "struct",
        "fields": [
          {"name": "challenger", "type": "publicKey"},
          {"name": "daree", "type": "publicKey"},
          {"name": "has_daree", "type": "bool"},
          {"name": "dare_id", "type": "u64"},
          {"name": "description_hash", "type": {"array": ["u8", 32]}},
          {"name": "amount", "type": "u64"},
          {"name": "status", "type": {"defined": "DareStatus"}},
          {"name": "dare_type", "type": {"defined": "DareType"}},
          {"name": "winner_selection", "type": {"defined": "WinnerSelection"}},
          {"name": "proof_hash", "type": {"array": ["u8", 32]}},
          {"name": "has_proof", "type": "bool"},
          {"name": "created_at", "type": "i64"},
          {"name": "deadline", "type": "i64"},
          {"name": "accepted_at", "type": "i64"},
          {"name": "completed_at", "type": "i64"},
          {"name": "bump", "type": "u8"},
          {"name": "vault_bump", "type": "u8"},
          {"name": "refused_at", "type": "i64"}
        ]
      }
    },
    {
      "name": "UserStats",
      "discriminator": [176,223,136,27,122,79,32,227],
      "type": {
        "kind": "struct",
        "fields": [
          {"name": "user", "type": "publicKey"},
          {"name": "dares_created", "type": "u32"},
          {"name": "dares_accepted", "type": "u32"},
          {"name": "dares_completed", "type": "u32"},
          {"name": "dares_failed", "type": "u32"},
          {"name": "total_earned", "type": "u64"},
          {"name": "total_spent", "type": "u64"},
          {"name": "bump", "type": "u8"}
        ]
      }
    }
  ],
  "events": [],
  "types": [
    {
      "name": "DareStatus",
      "type": {
        "kind": "enum",
        "variants": [
          {"name": "Created"},
          {"name": "Active"},
          {"name": "ProofSubmitted"},
          {"name": "Completed"},
          {"name": "Expired"},
          {"name": "Cancelled"},
          {"name": "Rejected"},
          {"name": "Refused"}
        ]
      }
    },
    {
      "name": "DareType",
      "type": {
        "kind": "enum",
        "variants": [
          {"name": "DirectDare"},
          {"name": "PublicBounty"}
        ]
      }
    },
    {
      "name": "WinnerSelection",
      "type": {
        "kind": "enum",
        "variants": [
          {"name": "ChallengerSelect"},
          {"name": "CommunityVote"}
        ]
      }
    }
  ],
  "errors": [
    {"code": 6000, "name": "InvalidAmount", "msg": "Amount must be greater than zero"},
    {"code": 6001, "name": "DeadlinePassed", "msg": "Deadline must be in the future"},
    {
      "code": 6002,
      "name": "DeadlineTooFar",
      "msg": "Deadline is too far in the future (max 30 days)"
    },
    {"code": 6003, "name": "InvalidDareStatus", "msg": "Dare is not in the expected status"},
    {"code": 6004, "name": "CannotAcceptOwnDare", "msg": "You cannot accept your own dare"},
    {
      "code": 6005,
      "name": "UnauthorizedChallenger",
      "msg": "Only the challenger can perform this action"
    },
    {
      "code": 6006,
      "name": "UnauthorizedDaree",
      "msg": "Only the daree can perform this action"
    },
    {"code": 6007, "name": "DareExpired", "msg": "The dare has expired"},
    {"code": 6008, "name": "DareNotExpired", "msg": "The dare has not expired yet"},
    {
      "code": 6009,
      "name": "DisputeWindowActive",
      "msg": "The dispute window has not passed yet"
    },
    {
      "code": 6010,
      "name": "InvalidDareType",
      "msg": "This dare type does not support this action"
    },
    {"code": 6011, "name": "ArithmeticOverflow", "msg": "Arithmetic overflow occurred"},
    {
      "code": 6012,
      "name": "MissingDareeStats",
      "msg": "Daree stats account is required but missing"
    },
    {
      "code": 6013,
      "name": "NotTargetedDare",
      "msg": "This dare does not have a target daree to refuse"
    }
  ]
}`
