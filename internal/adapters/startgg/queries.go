package startgg

// GraphQL documents, one per data need. Variables are always passed as
// a JSON object, never interpolated into the query text.

const entrantsQuery = `query getEntrants($eventSlug: String!, $pageNum: Int!, $perPage: Int!) {
  event(slug: $eventSlug) {
    entrants(query: { page: $pageNum, perPage: $perPage }) {
      pageInfo {
        totalPages
      }
      nodes {
        participants {
          player {
            gamerTag
            id
          }
        }
      }
    }
  }
}`

const setsQuery = `query getSets($eventSlug: String!, $pageNum: Int!, $perPage: Int!, $phases: [ID]!) {
  event(slug: $eventSlug) {
    sets(page: $pageNum, perPage: $perPage, filters: { state: [3], phaseIds: $phases }) {
      pageInfo {
        page
        totalPages
      }
      nodes {
        winnerId
        slots {
          entrant {
            id
            participants {
              player {
                gamerTag
                id
              }
            }
          }
          standing {
            stats {
              score {
                value
              }
            }
          }
        }
      }
    }
  }
}`

const phasesQuery = `query getPhases($eventSlug: String!) {
  event(slug: $eventSlug) {
    phases {
      id
      name
      state
      isExhibition
    }
  }
}`

const locationQuery = `query getLocation($eventSlug: String!) {
  event(slug: $eventSlug) {
    tournament {
      lat
      lng
    }
  }
}`

const startTimeQuery = `query getStartTime($eventSlug: String!) {
  event(slug: $eventSlug) {
    startAt
  }
}`

const namesQuery = `query getNames($eventSlug: String!) {
  event(slug: $eventSlug) {
    name
    tournament {
      name
    }
  }
}`

const tournamentsQuery = `query getTournaments($pageNum: Int!, $perPage: Int!, $startTime: Timestamp!, $endTime: Timestamp!, $videogameIds: [ID]) {
  tournaments(query: {
    page: $pageNum,
    perPage: $perPage,
    filter: {
      hasOnlineEvents: false,
      videogameIds: $videogameIds,
      afterDate: $startTime,
      beforeDate: $endTime
    }
  }) {
    pageInfo {
      totalPages
    }
    nodes {
      slug
      name
      events {
        name
        type
        videogame {
          id
        }
        slug
        numEntrants
      }
    }
  }
}`

const adminedQuery = `query getAdmined($tournamentSlug: String!, $pageNum: Int!, $perPage: Int!, $videogameIds: [ID!]) {
  tournament(slug: $tournamentSlug) {
    name
    startAt
    owner {
      id
      tournaments(query: {
        page: $pageNum,
        perPage: $perPage,
        filter: { videogameId: $videogameIds }
      }) {
        pageInfo {
          totalPages
        }
        nodes {
          name
          slug
          startAt
          owner {
            id
          }
        }
      }
    }
  }
}`
