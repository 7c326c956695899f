package indexer

const resourceFragment = `
fragment resource on ResourceType {
  tokenId
  name
  tier
  ipfsHash
  weight
  sales { datetime amount price }
  currentSales { datetime amount price }
  ingredients
}`

const listingsQuery = `
query getListings($tiers: [String], $weights: [String], $q: String, $seller: String, $order: String, $page: Int) {
  listings(tiers: $tiers, weights: $weights, q: $q, seller: $seller, order: $order, page: $page) {
    totalItems
    items {
      listingId
      resource { ...resource }
      amount
      price
      seller
      buyer
      closed
    }
  }
}` + resourceFragment

const lendingQuery = `
query getBorrowListings($tiers: [String], $weights: [String], $q: String, $address: String, $special: String, $order: String, $page: Int) {
  borrowListings(tiers: $tiers, weights: $weights, q: $q, address: $address, special: $special, order: $order, page: $page) {
    totalItems
    items {
      listingId
      resource { ...resource }
      lender
      borrower
      price
      duration
      closed
    }
  }
}` + resourceFragment

const statsQuery = `
query getMarketplaceStats {
  marketplaceStats { minElementPrice }
}`

const resourceQuery = `
query getResource($tokenId: ID!) {
  resource(tokenId: $tokenId) { ...resource }
}` + resourceFragment

const treeChartQuery = `
query getTreeChart($tokenId: ID!) {
  treeChart(tokenId: $tokenId) { id parentId tokenId name ipfsHash weight tier }
}`

const leaderboardQuery = `
query leaderboard {
  leaderboard { address weight maxTier tier0 tier1 tier2 tier3 tier4 tier5 }
}`

const gameLeaderboardQuery = `
query gameLeaderboard {
  gameLeaderboard { address wins played league }
}`

const chatTokenQuery = `
query chatToken($chatId: String!, $sig: String!) {
  chatToken(chatId: $chatId, sig: $sig)
}`

const settingsQuery = `
query settings {
  settings { chestSaleActive }
}`
