package inmemdb

import (
	"sync"

	"github.com/trezcool/fightlab/core/assessment"
	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/entitlement"
	"github.com/trezcool/fightlab/core/progress"
)

type (
	// DB is a process-local store used for development and tests.
	DB struct {
		catalog  *catalogTables
		purchase *purchaseTable
		attempt  *attemptTable
		progress *progressTable
	}

	catalogTables struct {
		sync.RWMutex
		courses   map[string]*catalog.Course
		lessons   map[string]*catalog.Lesson
		tests     map[string]*catalog.Test
		questions map[string]*catalog.Question
	}

	purchaseTable struct {
		sync.RWMutex
		table map[string]*entitlement.Purchase
	}

	attemptTable struct {
		sync.RWMutex
		table []assessment.Attempt // append-only
	}

	progressTable struct {
		sync.RWMutex
		table map[string]*progress.Progress // {userID/lessonID: progress}
	}
)

func Open() *DB {
	return &DB{
		catalog: &catalogTables{
			courses:   make(map[string]*catalog.Course),
			lessons:   make(map[string]*catalog.Lesson),
			tests:     make(map[string]*catalog.Test),
			questions: make(map[string]*catalog.Question),
		},
		purchase: &purchaseTable{table: make(map[string]*entitlement.Purchase)},
		attempt:  &attemptTable{},
		progress: &progressTable{table: make(map[string]*progress.Progress)},
	}
}
