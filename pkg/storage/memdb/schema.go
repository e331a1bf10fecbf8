package memdb

import (
	hcmemdb "github.com/hashicorp/go-memdb"
)

const (
	tableUsers         = "users"
	tableOrganizations = "organizations"
	tableTeams         = "teams"
	tableMemberships   = "memberships"
	tableProjects      = "projects"
	tableTasks         = "tasks"

	indexID       = "id"
	indexEmail    = "email"
	indexName     = "name"
	indexUser     = "user"
	indexTeam     = "team"
	indexUserTeam = "user_team"
	indexProject  = "project"
)

func idIndex() *hcmemdb.IndexSchema {
	return &hcmemdb.IndexSchema{
		Name:    indexID,
		Unique:  true,
		Indexer: &hcmemdb.StringFieldIndex{Field: "ID"},
	}
}

func teamIndex() *hcmemdb.IndexSchema {
	return &hcmemdb.IndexSchema{
		Name:    indexTeam,
		Indexer: &hcmemdb.StringFieldIndex{Field: "TeamID"},
	}
}

func schema() *hcmemdb.DBSchema {
	return &hcmemdb.DBSchema{
		Tables: map[string]*hcmemdb.TableSchema{
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: idIndex(),
					indexEmail: {
						Name:    indexEmail,
						Unique:  true,
						Indexer: &hcmemdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
			tableOrganizations: {
				Name: tableOrganizations,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: idIndex(),
					indexName: {
						Name:    indexName,
						Indexer: &hcmemdb.StringFieldIndex{Field: "Name", Lowercase: true},
					},
				},
			},
			tableTeams: {
				Name: tableTeams,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: idIndex(),
					indexName: {
						Name:    indexName,
						Indexer: &hcmemdb.StringFieldIndex{Field: "Name", Lowercase: true},
					},
				},
			},
			tableMemberships: {
				Name: tableMemberships,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: idIndex(),
					indexUserTeam: {
						Name:   indexUserTeam,
						Unique: true,
						Indexer: &hcmemdb.CompoundIndex{
							Indexes: []hcmemdb.Indexer{
								&hcmemdb.StringFieldIndex{Field: "UserID"},
								&hcmemdb.StringFieldIndex{Field: "TeamID"},
							},
						},
					},
					indexUser: {
						Name:    indexUser,
						Indexer: &hcmemdb.StringFieldIndex{Field: "UserID"},
					},
					indexTeam: teamIndex(),
				},
			},
			tableProjects: {
				Name: tableProjects,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID:   idIndex(),
					indexTeam: teamIndex(),
				},
			},
			tableTasks: {
				Name: tableTasks,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID:   idIndex(),
					indexTeam: teamIndex(),
					indexProject: {
						Name:    indexProject,
						Indexer: &hcmemdb.StringFieldIndex{Field: "ProjectID"},
					},
				},
			},
		},
	}
}
